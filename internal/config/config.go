// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides configuration loading, validation and live
// reloading.
package config

import "github.com/kortschak/apngplay/config"

// Alias the publicly visible types.
type (
	Player    = config.Player
	Animation = config.Animation
	Sink      = config.Sink
	Sum       = config.Sum
)
