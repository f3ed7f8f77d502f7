// Package audio schedules streamed speech segments for gapless playback and
// reports when each sentence actually starts and stops being heard.
//
// Output goes through a Sink: OtoSink plays on the system device using
// oto/v3, MockSink simulates playback for tests and headless machines.
package audio
