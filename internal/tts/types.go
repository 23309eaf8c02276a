package tts

// Format is the audio container a backend writes.
type Format int

const (
	// FormatMP3 is MPEG-1 Layer III audio
	FormatMP3 Format = iota

	// FormatWAV is RIFF/WAVE PCM audio
	FormatWAV
)

// Formats lists every known output format.
var Formats = []Format{FormatMP3, FormatWAV}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatWAV:
		return "wav"
	default:
		return "bin"
	}
}

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "MP3"
	case FormatWAV:
		return "WAV"
	default:
		return "unknown"
	}
}

// Descriptor identifies a registered backend. Immutable once registered.
type Descriptor struct {
	// Name is unique and used as the persisted selection key
	Name string

	// Format is the declared output format
	Format Format
}

// DescriptorOf returns the descriptor of a backend.
func DescriptorOf(b Backend) Descriptor {
	return Descriptor{Name: b.Name(), Format: b.Format()}
}
