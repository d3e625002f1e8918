package scheduling

import (
	"fmt"
	"slices"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
)

// transitions lists, per current phase, the phases StartPhase may open.
// KZT only leaves through the LZT conversion; a trailing PTG behaves like
// the intake state.
var transitions = map[catalog.SessionType][]catalog.SessionType{
	catalog.Sprechstunde: {catalog.Probatorik, catalog.KZT, catalog.LZT, catalog.RFP},
	catalog.Probatorik:   {catalog.KZT, catalog.LZT},
	catalog.Anamnese:     {catalog.KZT, catalog.LZT},
	catalog.LZT:          {catalog.RFP},
	catalog.PTG:          {catalog.Probatorik, catalog.KZT, catalog.LZT, catalog.RFP},
}

// Allowed reports the phases reachable from the chain's current phase. Phases
// that already hold sessions are excluded.
func Allowed(chain appointment.Chain) []catalog.SessionType {
	phase, ok := chain.Sorted().Phase()
	if !ok {
		return nil
	}
	var out []catalog.SessionType
	for _, next := range transitions[phase] {
		if !populated(chain, next) {
			out = append(out, next)
		}
	}
	return out
}

func populated(chain appointment.Chain, typ catalog.SessionType) bool {
	if typ == catalog.Probatorik {
		return chain.Has(catalog.Probatorik, catalog.Anamnese)
	}
	return chain.Has(typ)
}

// StartPhase appends the run of typ, numbered startNumber..total, anchored at
// the chain's last date. A Probatorik run is followed by its Anamnese.
func (e *Engine) StartPhase(chain appointment.Chain, clientID string, typ catalog.SessionType, startNumber int) (appointment.Chain, error) {
	chain = chain.Sorted()
	phase, ok := chain.Phase()
	if !ok {
		return nil, fmt.Errorf("%w: client %s has no appointments", ErrInvalidTransition, clientID)
	}
	if !slices.Contains(transitions[phase], typ) {
		return nil, fmt.Errorf("%w: %s cannot follow %s", ErrInvalidTransition, typ, phase)
	}
	if populated(chain, typ) {
		return nil, fmt.Errorf("%w: %s already scheduled", ErrInvalidTransition, typ)
	}

	anchor := chain.MaxDate()
	var (
		run appointment.Chain
		err error
	)
	if typ == catalog.Probatorik {
		run, err = e.generateProbatorik(clientID, anchor, startNumber)
	} else {
		run, err = e.Generate(clientID, anchor, typ, startNumber, e.catalog.Total(typ))
	}
	if err != nil {
		return nil, err
	}
	return append(chain, run...), nil
}

// ConvertKZTToLZT replaces the KZT sessions numbered fromNumber and up by an
// LZT run numbered fromNumber..total. The run takes over the slots of the
// dropped KZT sessions in order; sessions of other types among them, such as
// a PTG, keep their slot. Labels left over continue weekly after the last
// slot.
func (e *Engine) ConvertKZTToLZT(chain appointment.Chain, clientID string, fromNumber int) (appointment.Chain, error) {
	chain = chain.Sorted()
	phase, ok := chain.Phase()
	if !ok {
		return nil, fmt.Errorf("%w: client %s has no appointments", ErrInvalidTransition, clientID)
	}
	if phase != catalog.KZT && phase != catalog.PTG {
		return nil, fmt.Errorf("%w: conversion needs a running KZT, client is in %s", ErrInvalidTransition, phase)
	}
	kzt := chain.OfType(catalog.KZT)
	if len(kzt) == 0 {
		return nil, fmt.Errorf("%w: client %s has no KZT sessions", ErrInvalidTransition, clientID)
	}
	if chain.Has(catalog.LZT) {
		return nil, fmt.Errorf("%w: LZT already scheduled", ErrInvalidTransition)
	}

	lo, hi := kzt[0].Number, kzt[0].Number
	for _, s := range kzt {
		lo, hi = min(lo, s.Number), max(hi, s.Number)
	}
	if fromNumber < lo || fromNumber > hi {
		return nil, fmt.Errorf("%w: KZT %d outside remaining %d..%d", ErrInvalidRange, fromNumber, lo, hi)
	}

	firstDrop := slices.IndexFunc(chain, func(s appointment.Session) bool {
		return s.Type == catalog.KZT && s.Number >= fromNumber
	})

	run, err := e.Generate(clientID, chain[firstDrop].Date, catalog.LZT, fromNumber, e.catalog.Total(catalog.LZT))
	if err != nil {
		return nil, err
	}

	out := chain[:firstDrop].Clone()
	next := 0
	for _, s := range chain[firstDrop:] {
		if s.Type != catalog.KZT {
			out = append(out, s)
			continue
		}
		if next < len(run) {
			run[next].Date = s.Date
			out = append(out, run[next])
			next++
		}
	}
	for ; next < len(run); next++ {
		run[next].Date = tailDate(out)
		out = append(out, run[next])
	}
	return out, nil
}
