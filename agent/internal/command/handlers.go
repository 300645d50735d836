package command

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"growlink/agent/internal/logger"
)

// Actuation runs are capped so a bad payload cannot hold the poll loop
// hostage.
const maxRunDuration = 30 * time.Second

func init() {
	Register("spray", sprayHandler{})
	Register("fill", fillHandler{})
	Register("status", statusHandler{})
}

type sprayArg struct {
	DurationMs int `json:"duration_ms"`
}

type sprayHandler struct{}

func (sprayHandler) DecodeArg(raw json.RawMessage) (any, error) {
	var a sprayArg
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return a, nil
}

func (sprayHandler) Handle(arg any) (Result, error) {
	a, _ := arg.(sprayArg)
	if a.DurationMs <= 0 {
		a.DurationMs = 1000
	}
	d := time.Duration(a.DurationMs) * time.Millisecond
	if d > maxRunDuration {
		return Result{}, fmt.Errorf("spray duration %v exceeds cap %v", d, maxRunDuration)
	}
	logger.Infof("spray pump on for %v", d)
	time.Sleep(d)
	logger.Info("spray pump off")
	return Result{
		Message: fmt.Sprintf("sprayed for %dms", a.DurationMs),
		Data:    map[string]any{"duration_ms": a.DurationMs},
	}, nil
}

type fillArg struct {
	TargetLiters float64 `json:"target_liters"`
}

type fillHandler struct{}

func (fillHandler) DecodeArg(raw json.RawMessage) (any, error) {
	var a fillArg
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return a, nil
}

// fill assumes a 6 L/min valve; runtime derives from the target volume.
func (fillHandler) Handle(arg any) (Result, error) {
	a, _ := arg.(fillArg)
	if a.TargetLiters <= 0 {
		return Result{}, fmt.Errorf("target_liters must be positive, got %v", a.TargetLiters)
	}
	d := time.Duration(a.TargetLiters / 6.0 * float64(time.Minute))
	if d > maxRunDuration {
		return Result{}, fmt.Errorf("fill of %.2fL needs %v, exceeds cap %v", a.TargetLiters, d, maxRunDuration)
	}
	logger.Infof("fill valve open for %v (%.2fL)", d, a.TargetLiters)
	time.Sleep(d)
	logger.Info("fill valve closed")
	return Result{
		Message: fmt.Sprintf("filled %.2fL", a.TargetLiters),
		Data:    map[string]any{"target_liters": a.TargetLiters},
	}, nil
}

var startedAt = time.Now()

type statusHandler struct{}

func (statusHandler) DecodeArg(json.RawMessage) (any, error) { return nil, nil }

func (statusHandler) Handle(any) (Result, error) {
	hostname, _ := os.Hostname()
	return Result{
		Message: "agent alive",
		Data: map[string]any{
			"hostname":       hostname,
			"os":             runtime.GOOS,
			"arch":           runtime.GOARCH,
			"uptime_seconds": int(time.Since(startedAt).Seconds()),
		},
	}, nil
}
