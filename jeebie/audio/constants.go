package audio

// Timing constants
// Reference: https://gbdev.io/pandocs/Audio_details.html
const (
	// cyclesPerStep is the number of CPU cycles per frame sequencer tick.
	// The frame sequencer runs at 512 Hz: 4194304 Hz / 512 Hz = 8192 t-cycles
	cyclesPerStep = 8192
)

// Channel constants
const (
	// waveRAMSize is the size of wave pattern RAM in bytes (16 bytes = 32 nibbles)
	waveRAMSize = 16
)

// Mixer output constants
const (
	// mixBufferSamples is the length of the mixer's fixed sample buffer
	// before it is handed off to the resampler stage.
	mixBufferSamples = 512
	// sampleChannelDepth is the capacity of the bounded channel carrying
	// mixBufferSamples-sized buffers; a full channel means the consumer
	// has fallen behind, and the newly completed buffer is dropped.
	sampleChannelDepth = 4
)
