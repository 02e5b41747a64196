package gpio

import (
	"github.com/rs/zerolog"

	"github.com/sweeney/debounced-button/internal/logic"
)

// Sampler adapts a Reader to logic.LevelSource.
//
// Read errors never reach the debouncer: the last good level is returned
// instead and the error is reported to the log and the OnError hook.
type Sampler struct {
	reader       Reader
	log          zerolog.Logger
	onError      func(error)
	last         logic.Level
	recentErrors int
	totalErrors  int
}

// NewSampler creates a Sampler that reports initial until the first
// successful read. onError may be nil.
func NewSampler(reader Reader, initial logic.Level, log zerolog.Logger, onError func(error)) *Sampler {
	return &Sampler{
		reader:  reader,
		log:     log,
		onError: onError,
		last:    initial,
	}
}

// Level reads the pin, falling back to the last good level on error.
func (s *Sampler) Level() logic.Level {
	l, err := s.reader.Read()
	if err != nil {
		if s.recentErrors == 0 {
			s.log.Warn().Err(err).Msg("gpio read failed")
		}
		s.recentErrors++
		s.totalErrors++
		if s.onError != nil {
			s.onError(err)
		}
		return s.last
	}
	if s.recentErrors > 0 {
		s.log.Info().Int("failed_reads", s.recentErrors).Msg("gpio read recovered")
		s.recentErrors = 0
	}
	s.last = l
	return l
}

// Errors returns the number of failed reads since creation.
func (s *Sampler) Errors() int {
	return s.totalErrors
}
