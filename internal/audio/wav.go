// Package audio provides the WAV framing used when a client asks for a
// directly playable stream instead of raw PCM.
package audio

import (
	"encoding/binary"
	"io"
)

// streamingSize marks RIFF chunk lengths as unknown. Players treat the
// oversized declaration as "read until EOF", which is what a live synthesis
// stream needs: total length is unknowable when the header goes out.
const streamingSize = 0xFFFFFFFF

// WriteWAVHeaderFloat32LE writes a WAV header for mono float32 little-endian
// PCM of unknown length. The raw samples follow as-is, so a synthesis stream
// can be prefixed with one header write and relayed untouched.
func WriteWAVHeaderFloat32LE(out io.Writer, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 32
		audioFormat   = 3 // IEEE float
	)
	if sampleRate <= 0 {
		sampleRate = 44100
	}

	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], streamingSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], audioFormat)
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], streamingSize)

	_, err := out.Write(header[:])
	return err
}
