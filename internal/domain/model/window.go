package model

import (
	"fmt"
	"time"
)

// Window is the inclusive [Fom, Tom] date range a need asks about.
type Window struct {
	Fom time.Time
	Tom time.Time
}

func NewWindow(fom, tom time.Time) (Window, error) {
	if tom.Before(fom) {
		return Window{}, fmt.Errorf("window: tom %s before fom %s", tom.Format(DateLayout), fom.Format(DateLayout))
	}
	return Window{Fom: fom, Tom: tom}, nil
}

func (w Window) String() string {
	return w.Fom.Format(DateLayout) + ".." + w.Tom.Format(DateLayout)
}
