package domain

import "time"

// Direction is a manual drive direction.
type Direction string

const (
	DirForward  Direction = "forward"
	DirBackward Direction = "backward"
	DirLeft     Direction = "left"
	DirRight    Direction = "right"
	DirStop     Direction = "stop"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirForward, DirBackward, DirLeft, DirRight, DirStop:
		return true
	}
	return false
}

// OperatingMode selects who drives the robot.
type OperatingMode string

const (
	OpManual     OperatingMode = "manual"
	OpAutonomous OperatingMode = "autonomous"
)

// DriveCommand is the robot_control document consumed by the robot agent.
type DriveCommand struct {
	Direction Direction `json:"direction"`
	Speed     int       `json:"speed"` // percent, 0-100
	Depth     float64   `json:"depth"` // meters
	Paused    bool      `json:"paused"`
	IssuedBy  string    `json:"issuedBy,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// ModeCommand is the mode document consumed by the robot agent.
type ModeCommand struct {
	Mode      OperatingMode `json:"mode"`
	MapID     string        `json:"mapId,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// Ramp describes a fixed-step speed change.
type Ramp struct {
	Direction Direction     `json:"direction"`
	From      int           `json:"from"`
	To        int           `json:"to"`
	Step      int           `json:"step"`
	Interval  time.Duration `json:"interval"`
}

// Steps returns the intermediate speeds of the ramp, ending at To.
func (r Ramp) Steps() []int {
	step := r.Step
	if step <= 0 {
		step = 1
	}
	var out []int
	switch {
	case r.To > r.From:
		for v := r.From + step; v < r.To; v += step {
			out = append(out, v)
		}
	case r.To < r.From:
		for v := r.From - step; v > r.To; v -= step {
			out = append(out, v)
		}
	}
	return append(out, r.To)
}

// VideoSource is the stream reference shown on the dashboard.
type VideoSource struct {
	URL       string `json:"url"`
	AIEnabled bool   `json:"aiEnabled"`
}
