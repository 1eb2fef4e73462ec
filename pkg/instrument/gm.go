package instrument

// PercussionChannel is the zero-based General MIDI drum channel.
const PercussionChannel = 9

// Mapping is where a General MIDI program lands: the note block instrument and
// the octave shift that compensates for the instrument's register.
type Mapping struct {
	Instrument Instrument
	Shift      int
}

// Drum is a percussion-channel key resolved to a fixed instrument and key.
type Drum struct {
	Instrument Instrument
	Key        int // NBS key
}

type programSpan struct {
	first, last uint8
	inst        Instrument
}

// programSpans is the General MIDI program table. Programs with no reasonable
// note block counterpart (synth effects, sound effects) are absent.
var programSpans = []programSpan{
	{0, 7, Harp},            // pianos
	{8, 10, Bell},           // celesta, glockenspiel, music box
	{11, 11, IronXylophone}, // vibraphone
	{12, 13, Xylophone},     // marimba, xylophone
	{14, 14, Chime},         // tubular bells
	{15, 15, Harp},          // dulcimer
	{16, 23, Bit},           // organs
	{24, 31, Guitar},
	{32, 39, DoubleBass},
	{40, 46, Harp},       // strings
	{47, 47, BassDrum},   // timpani
	{48, 55, Harp},       // ensembles
	{56, 57, Bit},        // trumpet, trombone
	{58, 58, Didgeridoo}, // tuba
	{59, 63, Bit},        // brass
	{64, 79, Flute},      // reed, pipe
	{80, 87, Bit},        // synth lead
	{88, 95, Pling},      // synth pad
	{104, 106, Banjo},    // sitar, banjo, shamisen
	{107, 107, Harp},     // koto
	{108, 108, Chime},    // kalimba
	{109, 111, Flute},    // bagpipe, fiddle, shanai
	{112, 112, Bell},     // tinkle bell
	{113, 113, CowBell},  // agogo
	{114, 114, IronXylophone},
	{115, 115, Click},    // woodblock
	{116, 118, BassDrum}, // taiko, melodic tom, synth drum
}

var programs = func() [128]*Mapping {
	var table [128]*Mapping
	for _, span := range programSpans {
		for p := int(span.first); p <= int(span.last); p++ {
			table[p] = &Mapping{Instrument: span.inst, Shift: -span.inst.Octave()}
		}
	}
	return table
}()

// drums maps General MIDI percussion keys to note block sounds.
var drums = map[uint8]Drum{
	35: {BassDrum, 39}, // acoustic bass drum
	36: {BassDrum, 41}, // bass drum
	37: {Click, 43},    // side stick
	38: {Snare, 41},    // acoustic snare
	39: {Click, 35},    // hand clap
	40: {Snare, 45},    // electric snare
	41: {BassDrum, 34}, // low floor tom
	42: {Click, 51},    // closed hi-hat
	43: {BassDrum, 37}, // high floor tom
	44: {Snare, 55},    // pedal hi-hat
	45: {BassDrum, 40}, // low tom
	46: {Snare, 53},    // open hi-hat
	47: {BassDrum, 43}, // low-mid tom
	48: {BassDrum, 46}, // hi-mid tom
	49: {Snare, 50},    // crash cymbal
	50: {BassDrum, 49}, // high tom
	51: {Snare, 57},    // ride cymbal
	52: {Snare, 47},    // chinese cymbal
	53: {Snare, 52},    // ride bell
	54: {Snare, 56},    // tambourine
	55: {Snare, 49},    // splash cymbal
	56: {CowBell, 34},  // cowbell
	57: {Snare, 48},    // crash cymbal 2
	59: {Snare, 54},    // ride cymbal 2
	60: {Click, 50},    // hi bongo
	61: {Click, 45},    // low bongo
	62: {Click, 48},    // mute hi conga
	63: {Click, 46},    // open hi conga
	64: {Click, 41},    // low conga
	69: {Snare, 57},    // cabasa
	70: {Snare, 56},    // maracas
	75: {Click, 54},    // claves
	76: {Click, 52},    // hi wood block
	77: {Click, 47},    // low wood block
	81: {Chime, 57},    // open triangle
}

// Program resolves a General MIDI program number.
func Program(program uint8) (Mapping, bool) {
	if int(program) >= len(programs) || programs[program] == nil {
		return Mapping{}, false
	}
	return *programs[program], true
}

// Percussion resolves a key played on the General MIDI drum channel.
func Percussion(key uint8) (Drum, bool) {
	d, ok := drums[key]
	return d, ok
}

// GMProgram is the General MIDI program used when exporting inst.
func GMProgram(inst Instrument) uint8 {
	for _, span := range programSpans {
		if span.inst == inst {
			return span.first
		}
	}
	return 0
}

// GMDrumKey is the percussion-channel key used when exporting a percussive
// instrument.
func GMDrumKey(inst Instrument) uint8 {
	switch inst {
	case BassDrum:
		return 36
	case Snare:
		return 38
	default:
		return 42
	}
}
