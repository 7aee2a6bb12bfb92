package logger

import (
	"fmt"
	"strings"
	"sync"
)

// ProgressBar represents an ASCII progress bar with color support
type ProgressBar struct {
	current     int
	total       int
	width       int
	enableColor bool
	mu          sync.RWMutex
}

// NewProgressBar creates a new progress bar
func NewProgressBar(total, width int, enableColor bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{
		current:     0,
		total:       total,
		width:       width,
		enableColor: enableColor,
	}
}

// Increment increments the current progress by 1
func (pb *ProgressBar) Increment() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current++
}

// Update sets the current progress value
func (pb *ProgressBar) Update(current int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = current
}

// Current returns the current progress value
func (pb *ProgressBar) Current() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.current
}

// Percentage returns the progress percentage (0-100)
func (pb *ProgressBar) Percentage() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	if pb.total == 0 {
		return 0
	}

	perc := (pb.current * 100) / pb.total
	if perc > 100 {
		perc = 100
	}
	if perc < 0 {
		perc = 0
	}
	return perc
}

// Render returns the progress bar as a string: [=====     ] 3/8 (37%)
func (pb *ProgressBar) Render() string {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	filled := 0
	if pb.total > 0 {
		filled = (pb.current * pb.width) / pb.total
	}
	if filled > pb.width {
		filled = pb.width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("=", filled) + strings.Repeat(" ", pb.width-filled)
	perc := 0
	if pb.total > 0 {
		perc = (pb.current * 100) / pb.total
		if perc > 100 {
			perc = 100
		}
	}

	if pb.enableColor {
		return fmt.Sprintf("[\x1b[32m%s\x1b[0m] %d/%d (%d%%)", bar, pb.current, pb.total, perc)
	}
	return fmt.Sprintf("[%s] %d/%d (%d%%)", bar, pb.current, pb.total, perc)
}
