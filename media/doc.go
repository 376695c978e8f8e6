// Package media turns recordings in any container into normalized audio
// clips. WAVLoader handles PCM WAV in pure Go; FFmpeg shells out to ffprobe
// and ffmpeg through the process package and decodes the result from a
// scratch Workspace.
package media
