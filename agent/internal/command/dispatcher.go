package command

import (
	"encoding/json"
	"fmt"

	"growlink/agent/internal/logger"
)

// Dispatch runs the handler registered for the command type and returns
// the outcome to report. Unknown types and handler failures both come
// back as errors so the caller reports "failed" instead of dropping the
// command on the floor.
func Dispatch(cmdType string, params json.RawMessage) (Result, error) {
	h, ok := Get(cmdType)
	if !ok {
		return Result{}, fmt.Errorf("unknown command type %q", cmdType)
	}
	var arg any
	if len(params) > 0 {
		var err error
		arg, err = h.DecodeArg(params)
		if err != nil {
			return Result{}, fmt.Errorf("decode params for %s: %w", cmdType, err)
		}
	}
	logger.Infof("executing command type=%s", cmdType)
	res, err := h.Handle(arg)
	if err != nil {
		logger.Errorf("command %s failed: %v", cmdType, err)
		return Result{}, err
	}
	logger.Infof("command %s completed", cmdType)
	return res, nil
}
