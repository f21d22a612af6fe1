// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"log/slog"
)

type changeValue struct {
	Change
}

func (v changeValue) LogValue() slog.Value {
	events := make([]eventValue, len(v.Event))
	for i, e := range v.Event {
		events[i] = eventValue{
			Name: e.Name,
			Op:   e.Op.String(),
			Code: int(e.Op),
		}
	}
	var errText string
	if v.Err != nil {
		errText = v.Err.Error()
	}
	var animations int
	if v.Config != nil {
		animations = len(v.Config.Animations)
	}
	return slog.AnyValue(struct {
		Event      []eventValue `json:"event"`
		Animations int          `json:"animations"`
		Sum        string       `json:"sum,omitempty"`
		Err        string       `json:"err,omitempty"`
	}{
		Event:      events,
		Animations: animations,
		Sum:        v.Sum.String(),
		Err:        errText,
	})
}

type eventValue struct {
	Name string `json:"name"`
	Op   string `json:"op"`
	Code int    `json:"op_code"`
}

type sumValue struct {
	Sum
}

func (v sumValue) LogValue() slog.Value {
	return slog.StringValue(v.Sum.String())
}
