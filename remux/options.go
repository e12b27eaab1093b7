package remux

import (
	"log/slog"

	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// Options configures a single convert/stitch call, per §6's start_time_s/
// end_time_s/logger parameters. A nil Start/EndTimeS means "absent": the
// output runs from the beginning, or to the end, respectively.
type Options struct {
	StartTimeS *float64
	EndTimeS   *float64
	Logger     *slog.Logger
}

// Error is the classified error every entry point in this package returns
// on failure. It is a direct alias of rmerrors.Error so callers can type-
// assert or errors.As against either name.
type Error = rmerrors.Error

// Kind classifies why a call failed; see rmerrors.Kind for the taxonomy.
type Kind = rmerrors.Kind

// Error kind constants, re-exported for callers that don't want to import
// pkg/rmerrors directly.
const (
	KindMalformedContainer = rmerrors.KindMalformedContainer
	KindUnsupportedCodec   = rmerrors.KindUnsupportedCodec
	KindEmptyStream        = rmerrors.KindEmptyStream
	KindInvalidArgument    = rmerrors.KindInvalidArgument
	KindOutOfBounds        = rmerrors.KindOutOfBounds
)
