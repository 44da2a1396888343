package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/irisdrone/bladealert/internal/dashboard"
	"github.com/irisdrone/bladealert/internal/models"
)

// command is one line typed at the dashboard prompt
type command struct {
	name   string
	filter dashboard.Filter
	page   int
}

const helpText = `commands:
  live                                  show live alerts
  search start=<time> end=<time> [camera=ID] [defect=NAME] [conf=0.5]
  filter [camera=ID] [defect=NAME] [conf=0.5]
  page <n>                              go to page n
  cameras                               list cameras
  refresh-cameras                       reload the camera list
  quit`

// parseCommand turns a prompt line into a command
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}

	cmd := command{name: strings.ToLower(fields[0])}
	switch cmd.name {
	case "live", "cameras", "refresh-cameras", "quit", "exit", "help":
		return cmd, nil

	case "page":
		if len(fields) != 2 {
			return cmd, fmt.Errorf("usage: page <n>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return cmd, fmt.Errorf("invalid page %q", fields[1])
		}
		cmd.page = n
		return cmd, nil

	case "search", "filter":
		f, err := parseFilter(fields[1:])
		if err != nil {
			return cmd, err
		}
		cmd.filter = f
		return cmd, nil
	}
	return cmd, fmt.Errorf("unknown command %q", fields[0])
}

func parseFilter(args []string) (dashboard.Filter, error) {
	var f dashboard.Filter
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok || val == "" {
			return f, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch key {
		case "camera":
			f.CameraID = val
		case "defect":
			f.DefectName = val
		case "conf":
			conf, err := strconv.ParseFloat(val, 64)
			if err != nil || conf < 0 || conf > 1 {
				return f, fmt.Errorf("invalid confidence %q", val)
			}
			f.MinConfidence = conf
		case "start", "end":
			t, err := parseInputTime(val)
			if err != nil {
				return f, fmt.Errorf("invalid %s time %q", key, val)
			}
			if key == "start" {
				f.Start = t
			} else {
				f.End = t
			}
		default:
			return f, fmt.Errorf("unknown filter %q", key)
		}
	}
	return f, nil
}

// parseInputTime accepts the server's time formats plus a bare date
func parseInputTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return models.ParseTime(s)
}
