package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/irisdrone/bladealert/internal/alertsource"
	"github.com/irisdrone/bladealert/internal/config"
	"github.com/irisdrone/bladealert/internal/dashboard"
)

func main() {
	config.LoadEnvFile()
	cfg := config.DashboardFromEnv()

	serverURL := flag.String("server", cfg.ServerURL, "Alert server URL")
	pageSize := flag.Int("page-size", cfg.PageSize, "Alerts per page")
	start := flag.String("start", "", "Historical search start (starts in history mode when set with -end)")
	end := flag.String("end", "", "Historical search end")
	camera := flag.String("camera", "", "Camera filter")
	defect := flag.String("defect", "", "Defect name filter")
	minConf := flag.Float64("min-conf", 0, "Minimum detection confidence (0-1)")
	once := flag.Bool("once", false, "Print one page and exit")
	countdown := flag.Bool("countdown", false, "Show the history mode countdown every second")
	flag.Parse()

	var args []string
	for k, v := range map[string]string{"start": *start, "end": *end, "camera": *camera, "defect": *defect} {
		if v != "" {
			args = append(args, k+"="+v)
		}
	}
	if *minConf > 0 {
		args = append(args, fmt.Sprintf("conf=%g", *minConf))
	}
	filter, err := parseFilter(args)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	client := alertsource.NewClient(*serverURL, cfg.RequestTimeout)
	term := newTerminal(os.Stdout)
	term.showTick = *countdown

	session := dashboard.NewSession(client, dashboard.SessionConfig{
		PageSize:       *pageSize,
		RefreshEvery:   cfg.RefreshEvery,
		RevertAfter:    cfg.RevertAfter,
		CameraCacheTTL: cfg.CameraCacheTTL,
	}, term)
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	historical := !filter.Start.IsZero() || !filter.End.IsZero()

	if *once {
		if historical {
			err = session.SearchHistory(ctx, filter)
		} else {
			err = session.SetFilter(ctx, filter)
		}
		if err != nil {
			os.Exit(1)
		}
		return
	}

	log.Printf("🚀 Dashboard connected to %s", client.BaseURL())
	term.Cameras(session.LoadCameras(ctx))

	if historical {
		session.SearchHistory(ctx, filter)
	} else if !filter.IsZero() {
		session.SetFilter(ctx, filter)
	}

	go session.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println(helpText)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				<-ctx.Done()
				return
			}
			if quit := handleLine(ctx, session, term, line); quit {
				return
			}
		}
	}
}

// handleLine runs one prompt command and reports whether to exit
func handleLine(ctx context.Context, s *dashboard.Session, term *terminal, line string) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		fmt.Println(err)
		return false
	}

	switch cmd.name {
	case "quit", "exit":
		return true
	case "help":
		fmt.Println(helpText)
	case "live":
		s.ShowLive(ctx)
	case "search":
		s.SearchHistory(ctx, cmd.filter)
	case "filter":
		s.SetFilter(ctx, cmd.filter)
	case "page":
		s.SetPage(ctx, cmd.page)
	case "cameras":
		term.Cameras(s.LoadCameras(ctx))
	case "refresh-cameras":
		if _, err := s.Cameras.ForceRefresh(ctx); err != nil {
			fmt.Printf("camera refresh failed: %v\n", err)
		}
		term.Cameras(dashboard.OrderCameras(s.Cameras.GetAll()))
	}
	return false
}
