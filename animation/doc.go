// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package animation provides animated image playback.
//
// A [Model] holds a decoded animation: its canvas size, loop count and the
// ordered frames with their regions, delays and disposal and blend
// operations. An [Engine] plays a Model onto any number of attached
// [Surface] values, compositing each frame according to the APNG rules and
// keeping every surface identical to the others.
//
// Engines do not own a clock or a goroutine. Time is supplied by a
// [Scheduler] that calls back once per requested tick with the current time.
// [Manual] is driven explicitly by the caller and [Loop] runs callbacks at a
// fixed frame interval on a single goroutine. All Engine methods must be
// called from the scheduler's execution context.
package animation
