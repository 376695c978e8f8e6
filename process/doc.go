// Package process runs external media tools such as ffmpeg and ffprobe.
//
// Run executes one Command with stdout captured and stderr tailed. A Tool
// binds a binary to a timeout and exposes it as a provider, and a Call
// turns typed input into a Command and parses the Result back:
//
//	ffprobe := process.NewTool(process.ToolConfig{Binary: "ffprobe", Timeout: time.Minute})
//	durationCall := process.NewCall("ffprobe", ffprobe, durationArgs, parseDuration)
//	seconds, err := durationCall.Execute(ctx, "/tmp/meeting.mp4")
package process
