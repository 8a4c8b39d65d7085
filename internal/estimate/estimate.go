// Package estimate computes the credit cost and wall-clock time estimate
// for a render job before any credits are reserved. It is a pure function
// over the job parameters: same input, same answer, no side effects.
package estimate

import (
	"math"
	"strings"

	"abode/internal/models"
	"abode/internal/pkg/errors"
)

// Engine is the render engine requested in the job's engine params.
type Engine string

const (
	// EngineCycles is the path-traced engine (higher fidelity, 1.5x cost).
	EngineCycles Engine = "cycles"
	// EngineEevee is the rasterized realtime engine (1.0x cost).
	EngineEevee Engine = "eevee"
)

// ReferenceSamples is the sample count the base time table assumes.
const ReferenceSamples = 128

// walkthroughUnitSeconds is the billing unit for walkthrough duration.
const walkthroughUnitSeconds = 10

type key struct {
	rt models.RenderType
	q  models.Quality
}

var baseCredits = map[key]int{
	{models.RenderStill, models.Quality1080p}:       10,
	{models.RenderStill, models.Quality4K}:          25,
	{models.RenderStill, models.Quality8K}:          50,
	{models.RenderWalkthrough, models.Quality1080p}: 50,
	{models.RenderWalkthrough, models.Quality4K}:    100,
	{models.RenderWalkthrough, models.Quality8K}:    200,
	{models.RenderPanorama, models.Quality1080p}:    30,
	{models.RenderPanorama, models.Quality4K}:       75,
	{models.RenderPanorama, models.Quality8K}:       150,
}

var baseSeconds = map[key]int{
	{models.RenderStill, models.Quality1080p}:       120,
	{models.RenderStill, models.Quality4K}:          300,
	{models.RenderStill, models.Quality8K}:          600,
	{models.RenderWalkthrough, models.Quality1080p}: 600,
	{models.RenderWalkthrough, models.Quality4K}:    1200,
	{models.RenderWalkthrough, models.Quality8K}:    2400,
	{models.RenderPanorama, models.Quality1080p}:    240,
	{models.RenderPanorama, models.Quality4K}:       600,
	{models.RenderPanorama, models.Quality8K}:       1200,
}

// Input holds the parameters that drive the estimate.
type Input struct {
	RenderType models.RenderType
	Quality    models.Quality
	Engine     Engine
	Samples    int
	// DurationSeconds applies to walkthrough jobs only. Zero means the
	// caller did not specify a duration; explicit non-positive values are
	// rejected by the HTTP layer before reaching here.
	DurationSeconds int
}

// Result is the cost and time estimate for a valid input.
type Result struct {
	Credits int
	Seconds int
}

// ParseEngine normalizes an engine name from a submission payload.
// Older clients send the descriptive names instead of the engine names.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cycles", "path-traced":
		return EngineCycles, nil
	case "eevee", "realtime", "rasterized":
		return EngineEevee, nil
	default:
		return "", errors.ValidationField("engine_params.engine", "engine must be one of: cycles, eevee")
	}
}

// Estimate maps job parameters to a credit cost and a duration estimate.
// Credits never round down: under-charging is forbidden.
func Estimate(in Input) (Result, error) {
	k := key{in.RenderType, in.Quality}
	credits, ok := baseCredits[k]
	if !ok {
		return Result{}, errors.Validationf("unknown render_type/quality combination: %s/%s", in.RenderType, in.Quality)
	}
	seconds := baseSeconds[k]

	mult, err := engineMultiplier(in.Engine)
	if err != nil {
		return Result{}, err
	}

	if in.Samples <= 0 {
		return Result{}, errors.ValidationField("engine_params.samples", "samples must be a positive integer")
	}
	if in.DurationSeconds < 0 {
		return Result{}, errors.ValidationField("engine_params.duration_seconds", "duration_seconds must be positive")
	}

	durationUnits := 1
	if in.RenderType == models.RenderWalkthrough && in.DurationSeconds > 0 {
		durationUnits = int(math.Ceil(float64(in.DurationSeconds) / walkthroughUnitSeconds))
	}

	cost := math.Ceil(float64(credits) * mult * float64(durationUnits))
	est := math.Ceil(float64(seconds) * mult * float64(in.Samples) / ReferenceSamples * float64(durationUnits))

	return Result{Credits: int(cost), Seconds: int(est)}, nil
}

func engineMultiplier(e Engine) (float64, error) {
	switch e {
	case EngineCycles:
		return 1.5, nil
	case EngineEevee:
		return 1.0, nil
	default:
		return 0, errors.ValidationField("engine_params.engine", "engine must be one of: cycles, eevee")
	}
}
