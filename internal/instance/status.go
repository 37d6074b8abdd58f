package instance

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	dockerpkg "github.com/dyluth/ideaboard/internal/docker"
)

// Status represents the health of a room's containers
type Status string

const (
	// StatusRunning indicates all containers are running
	StatusRunning Status = "Running"

	// StatusDegraded indicates some containers are stopped or missing
	StatusDegraded Status = "Degraded"

	// StatusStopped indicates all containers exist but are stopped
	StatusStopped Status = "Stopped"
)

// DetermineStatus analyzes a set of containers and determines the overall status.
func DetermineStatus(containers []types.Container) Status {
	if len(containers) == 0 {
		return StatusStopped
	}

	runningCount := 0
	for _, c := range containers {
		if c.State == "running" {
			runningCount++
		}
	}

	switch {
	case runningCount == len(containers):
		return StatusRunning
	case runningCount > 0:
		return StatusDegraded
	default:
		return StatusStopped
	}
}

// RoomInfo describes one provisioned room.
type RoomInfo struct {
	Room   string `json:"room"`
	Status Status `json:"status"`
	Port   int    `json:"port,omitempty"`
	Uptime string `json:"uptime"`
}

// summarize groups labelled containers by room.
func summarize(containers []types.Container, now time.Time) []RoomInfo {
	rooms := make(map[string][]types.Container)
	for _, c := range containers {
		room := c.Labels[dockerpkg.LabelRoom]
		rooms[room] = append(rooms[room], c)
	}

	infos := make([]RoomInfo, 0, len(rooms))
	for room, cs := range rooms {
		info := RoomInfo{Room: room, Status: DetermineStatus(cs), Uptime: "-"}
		for _, c := range cs {
			if p, err := strconv.Atoi(c.Labels[dockerpkg.LabelRedisPort]); err == nil {
				info.Port = p
			}
		}
		if info.Status == StatusRunning {
			info.Uptime = formatDuration(now.Sub(time.Unix(cs[0].Created, 0)))
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Room < infos[j].Room })
	return infos
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	hours := d / time.Hour
	d -= hours * time.Hour

	minutes := d / time.Minute
	d -= minutes * time.Minute

	seconds := d / time.Second

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
