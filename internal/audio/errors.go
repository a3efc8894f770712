package audio

import "errors"

var (
	// ErrNotWAV indicates the file is not a RIFF/WAVE container.
	ErrNotWAV = errors.New("not a WAV file")

	// ErrDecode indicates the decoding collaborator could not produce a
	// sample stream for the file.
	ErrDecode = errors.New("decode failed")

	// ErrSampleRateMismatch indicates the two inputs have different sample
	// rates and resampling was not requested.
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
)
