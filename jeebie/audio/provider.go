package audio

type Provider interface {
	// GetSamples retrieves audio samples for playback
	GetSamples(count int) []int16

	// Samples exposes the mixer's bounded channel of fixed-length sample
	// buffers, for a resampler worker to consume directly rather than
	// polling GetSamples. A full channel means the consumer has fallen
	// behind; the mixer drops the newest buffer and logs rather than
	// blocking emulation on it.
	Samples() <-chan []int16

	// Audio debugging controls

	ToggleChannel(channel int)
	SoloChannel(channel int)
	GetChannelStatus() (ch1, ch2, ch3, ch4 bool)
}

var _ Provider = (*APU)(nil)
