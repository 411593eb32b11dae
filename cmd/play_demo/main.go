// Command play_demo builds a short hand-written motif.Sequence, binds it to
// the adapted FM instrument, and plays it through the shared ebiten audio
// output.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/cbegin/motif"
	"github.com/cbegin/motif/internal/audio"
	"github.com/cbegin/motif/internal/instruments"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		bpm        = flag.Float64("bpm", 120, "tempo in beats per minute")
		volume     = flag.Float64("volume", 1.0, "master gain scalar")
	)
	flag.Parse()

	engine := motif.NewEngine(
		motif.WithSampleRate(*sampleRate),
		motif.WithTempo(*bpm),
	)

	params := instruments.DefaultFMParams()
	instID := engine.CreateInstrument(instruments.FM(params))

	seq := buildDemoSequence()
	perfID := engine.AddPerformer(seq)
	if err := engine.SetPerformerInstrument(perfID, instID); err != nil {
		log.Fatal(err)
	}

	if inst := engine.Instrument(instID); inst != nil {
		inst.SetParameter(instruments.ParamGain, *volume*params.MasterGain, 0)
	}

	source := audio.NewEngineSource(engine)
	player, err := audio.NewPlayer(*sampleRate, source)
	if err != nil {
		log.Fatal(err)
	}
	engine.Start()
	player.Play()

	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
	fmt.Println("playback completed")
}

// buildDemoSequence lays out a one-octave ascending arpeggio followed by a
// sustained chord, every position/pitch expressed directly in beats/octaves
// rather than through any scripted score format.
func buildDemoSequence() *motif.Sequence {
	seq := motif.NewSequence()
	var ids motif.IdGenerator

	arpeggio := []float64{0, 4.0 / 12, 7.0 / 12, 1} // root, major third, fifth, octave
	for i, pitch := range arpeggio {
		seq.AddNote(ids.Next(), float64(i)*0.5, motif.NoteDefinition{
			DurationBeats: 0.45,
			Pitch:         pitch,
			Intensity:     0.9,
		})
	}

	chordAt := float64(len(arpeggio)) * 0.5
	for _, pitch := range arpeggio[:3] {
		seq.AddNote(ids.Next(), chordAt, motif.NoteDefinition{
			DurationBeats: 2,
			Pitch:         pitch,
			Intensity:     0.7,
		})
	}

	return seq
}
