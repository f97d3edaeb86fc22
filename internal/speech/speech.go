// Package speech is the voice feedback channel: short spoken instructions
// keyed to capture gate transitions. Fire-and-forget; a Say call never
// blocks the tick.
package speech

import (
	htgotts "github.com/hegedustibor/htgo-tts"
	"github.com/hegedustibor/htgo-tts/handlers"
	"github.com/sirupsen/logrus"

	"github.com/dudu/eyescreen/internal/logging"
)

// Channel delivers one short instruction to the user. Implementations must
// not block the caller.
type Channel interface {
	Say(text string)
}

// Synthesizer speaks instructions through the system audio output. Clips
// are synthesized and cached under the configured folder. Utterances that
// arrive while one is still playing are dropped, not queued, so stale
// instructions are never spoken late.
type Synthesizer struct {
	queue chan string
	done  chan struct{}
	log   *logrus.Entry
}

// NewSynthesizer starts the playback worker.
func NewSynthesizer(cacheDir, language string) *Synthesizer {
	s := &Synthesizer{
		queue: make(chan string, 1),
		done:  make(chan struct{}),
		log:   logging.WithComponent("speech"),
	}

	tts := htgotts.Speech{
		Folder:   cacheDir,
		Language: language,
		Handler:  &handlers.Native{},
	}

	go func() {
		defer close(s.done)
		for text := range s.queue {
			if err := tts.Speak(text); err != nil {
				s.log.WithError(err).Warn("speech synthesis failed")
			}
		}
	}()

	return s
}

// Say speaks the instruction, dropping it if playback is already busy.
func (s *Synthesizer) Say(text string) {
	select {
	case s.queue <- text:
	default:
		s.log.WithField("text", text).Debug("speech busy, instruction dropped")
	}
}

// Close stops the worker after the current utterance.
func (s *Synthesizer) Close() {
	close(s.queue)
	<-s.done
}

// Console writes instructions to the log instead of speaking them. Used
// when audio is disabled or unavailable.
type Console struct{}

// Say logs the instruction.
func (Console) Say(text string) {
	logging.WithComponent("speech").Info(text)
}

// Nop discards all instructions.
type Nop struct{}

// Say does nothing.
func (Nop) Say(string) {}
