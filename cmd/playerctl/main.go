// Package main provides the player control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"google.golang.org/protobuf/types/known/structpb"

	apiconnect "github.com/osa030/jfplayer/internal/api/connect"
	"github.com/osa030/jfplayer/internal/domain/ticks"
)

var (
	app    = kingpin.New("jfplayer-playerctl", "jfplayer remote control")
	server = app.Flag("server", "Server address").Default("http://localhost:3000").String()
	token  = app.Flag("token", "Control token (or set CONTROL_TOKEN env)").Envar("CONTROL_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show the player state")

	// transport commands
	toggleCmd = app.Command("toggle", "Toggle play/pause")
	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume playback")
	nextCmd   = app.Command("next", "Skip to the next track").Alias("skip")
	prevCmd   = app.Command("prev", "Go back to the previous track")
	clearCmd  = app.Command("clear", "Clear the queue")

	// seek command
	seekCmd     = app.Command("seek", "Seek within the current track")
	seekSeconds = seekCmd.Arg("seconds", "Position in seconds").Required().Float64()

	// play command
	playCmd      = app.Command("play", "Play a playlist")
	playPlaylist = playCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playShuffle  = playCmd.Flag("shuffle", "Shuffle the playlist").Bool()
	playSort     = playCmd.Flag("sort", "Jellyfin SortBy value").String()

	// play-track command
	trackCmd      = app.Command("play-track", "Play one track of a playlist")
	trackPlaylist = trackCmd.Arg("playlist-id", "Playlist ID").Required().String()
	trackID       = trackCmd.Arg("track-id", "Track ID").Required().String()
	trackSort     = trackCmd.Flag("sort", "Jellyfin SortBy value").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)
	ctx := context.Background()

	var (
		procedure string
		args      map[string]any
	)
	switch command {
	case statusCmd.FullCommand():
		procedure = apiconnect.GetState
	case toggleCmd.FullCommand():
		procedure = apiconnect.Toggle
	case pauseCmd.FullCommand():
		procedure = apiconnect.Pause
	case resumeCmd.FullCommand():
		procedure = apiconnect.Resume
	case nextCmd.FullCommand():
		procedure = apiconnect.Next
	case prevCmd.FullCommand():
		procedure = apiconnect.Prev
	case clearCmd.FullCommand():
		procedure = apiconnect.Clear
	case seekCmd.FullCommand():
		procedure = apiconnect.Seek
		args = map[string]any{"seconds": *seekSeconds}
	case playCmd.FullCommand():
		procedure = apiconnect.PlayPlaylist
		args = map[string]any{"playlistId": *playPlaylist, "shuffle": *playShuffle, "sortBy": *playSort}
	case trackCmd.FullCommand():
		procedure = apiconnect.PlayTrack
		args = map[string]any{"playlistId": *trackPlaylist, "trackId": *trackID, "sortBy": *trackSort}
	}

	state, err := client.Call(ctx, procedure, args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	printState(state)
}

func printState(s *structpb.Struct) {
	f := s.GetFields()

	fmt.Println("\n=== PLAYER STATE ===")
	fmt.Printf("Status: %s\n", formatStatus(f["status"].GetStringValue()))
	fmt.Printf("Queue Size: %d\n", len(f["queue"].GetListValue().GetValues()))

	if !f["hasTrack"].GetBoolValue() {
		fmt.Println("\nNo track loaded")
		fmt.Println()
		return
	}

	index := int(f["index"].GetNumberValue())
	fmt.Printf("\nCurrent Track (%d):\n", index+1)
	fmt.Printf("  Title: %s\n", f["currentTitle"].GetStringValue())
	if cur := f["current"].GetStructValue(); cur != nil {
		fmt.Printf("  Track ID: %s\n", cur.GetFields()["Id"].GetStringValue())
		if artists := cur.GetFields()["Artists"].GetListValue(); artists != nil {
			names := make([]string, 0, len(artists.GetValues()))
			for _, a := range artists.GetValues() {
				names = append(names, a.GetStringValue())
			}
			fmt.Printf("  Artists: %v\n", names)
		}
		if album := cur.GetFields()["Album"].GetStringValue(); album != "" {
			fmt.Printf("  Album: %s\n", album)
		}
	}
	fmt.Printf("  Position: %s / %s (%.0f%%)\n",
		ticks.FormatSeconds(f["progress"].GetNumberValue()),
		ticks.FormatSeconds(f["effectiveDuration"].GetNumberValue()),
		f["progressPercent"].GetNumberValue())
	fmt.Printf("  Can Next: %v, Can Prev: %v\n", f["canNext"].GetBoolValue(), f["canPrev"].GetBoolValue())
	fmt.Println()
}

func formatStatus(status string) string {
	switch status {
	case "playing":
		return "▶️  Playing"
	case "paused":
		return "⏸  Paused"
	case "idle":
		return "⏹  Idle"
	default:
		return "❓ Unknown"
	}
}
