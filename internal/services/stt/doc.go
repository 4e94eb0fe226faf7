// Package stt wraps the speech-to-text collaborator. Audio is extracted from
// the source video with ffmpeg as mono 16 kHz PCM WAV, then submitted to the
// transcription service which returns time-aligned segments.
//
// A partial or empty transcript is a legitimate result. Unreadable source
// media is a permanent input failure; an unreachable service is transient.
package stt
