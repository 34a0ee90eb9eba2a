// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package rpn

import (
	"nickandperla.net/rpn/internal/state"
	"nickandperla.net/rpn/internal/store"
)

// DefaultFunctions returns the seeded function library: heading
// rotation, angle wrapping and angular difference.
func DefaultFunctions() state.Functions {
	return state.Functions{
		{Name: "add90", Params: 1, Body: "p1 90 + dnor"},
		{Name: "wrap360", Params: 1, Body: "p1 360 % 360 + 360 %"},
		{Name: "angle_diff", Params: 2, Body: "p1 p2 - 360 + 360 %"},
	}
}

// DefaultSimVars returns the seeded external variables.
func DefaultSimVars() state.SimVars {
	return state.SimVars{
		"A": {
			"PLANE HEADING DEGREES, Degrees":                 270,
			"GENERAL ENG THROTTLE LEVER POSITION:1, Percent": 50,
		},
	}
}

// SeedDefaults writes the default function library and external
// variables into s when those pieces are empty, and rewrites the
// register bank and history so all four pieces exist. Existing
// definitions are left alone.
func SeedDefaults(s store.Store) error {
	funcs, err := s.LoadFunctions()
	if err != nil {
		return err
	}
	if len(funcs) == 0 {
		if err := s.SaveFunctions(DefaultFunctions()); err != nil {
			return err
		}
	}
	sim, err := s.LoadSimVars()
	if err != nil {
		return err
	}
	if len(sim) == 0 {
		if err := s.SaveSimVars(DefaultSimVars()); err != nil {
			return err
		}
	}
	regs, err := s.LoadRegisters()
	if err != nil {
		return err
	}
	if err := s.SaveRegisters(regs); err != nil {
		return err
	}
	hist, err := s.LoadHistory()
	if err != nil {
		return err
	}
	return s.SaveHistory(hist)
}
