package connect

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/jfplayer/internal/app/catalog"
	"github.com/osa030/jfplayer/internal/app/playback"
	"github.com/osa030/jfplayer/internal/domain/playlist"
	"github.com/osa030/jfplayer/internal/domain/track"
	"github.com/osa030/jfplayer/internal/infra/jellyfin"
)

// ServiceName is the fully-qualified name of the player service.
const ServiceName = "jfplayer.v1.PlayerService"

// Procedure names.
const (
	GetState     = "GetState"
	Toggle       = "Toggle"
	Pause        = "Pause"
	Resume       = "Resume"
	Next         = "Next"
	Prev         = "Prev"
	Clear        = "Clear"
	Seek         = "Seek"
	PlayPlaylist = "PlayPlaylist"
	PlayTrack    = "PlayTrack"
)

// NoArgProcedures take an empty request.
var NoArgProcedures = []string{GetState, Toggle, Pause, Resume, Next, Prev, Clear}

// ArgProcedures take a struct request.
var ArgProcedures = []string{Seek, PlayPlaylist, PlayTrack}

// ProcedurePath returns the HTTP path of a procedure.
func ProcedurePath(name string) string {
	return "/" + ServiceName + "/" + name
}

// Player is the playback engine as seen by the control service.
type Player interface {
	Snapshot() playback.Snapshot
	Toggle()
	Pause()
	Resume()
	Next()
	Prev()
	Clear()
	Seek(seconds float64)
	PlayAll(tracks []track.Track)
	PlayAllShuffled(tracks []track.Track)
	PlayTrack(t track.Track, queueContext []track.Track)
}

// TrackSource loads playlist contents.
type TrackSource interface {
	PlaylistTracks(ctx context.Context, playlistID, sortBy string) (*track.ItemsResponse[track.Track], error)
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	player Player
	tracks TrackSource
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(player Player, tracks TrackSource) *PlayerService {
	return &PlayerService{
		player: player,
		tracks: tracks,
	}
}

type (
	noArgFunc func(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error)
	argFunc   func(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error)
)

// NewPlayerServiceHandler builds an HTTP handler serving every procedure.
// It returns the path prefix to mount it on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	noArg := map[string]noArgFunc{
		GetState: svc.GetState,
		Toggle:   svc.control(svc.player.Toggle),
		Pause:    svc.control(svc.player.Pause),
		Resume:   svc.control(svc.player.Resume),
		Next:     svc.control(svc.player.Next),
		Prev:     svc.control(svc.player.Prev),
		Clear:    svc.control(svc.player.Clear),
	}
	withArg := map[string]argFunc{
		Seek:         svc.Seek,
		PlayPlaylist: svc.PlayPlaylist,
		PlayTrack:    svc.PlayTrack,
	}

	mux := http.NewServeMux()
	for name, fn := range noArg {
		path := ProcedurePath(name)
		mux.Handle(path, connect.NewUnaryHandler(path, fn, opts...))
	}
	for name, fn := range withArg {
		path := ProcedurePath(name)
		mux.Handle(path, connect.NewUnaryHandler(path, fn, opts...))
	}
	return "/" + ServiceName + "/", mux
}

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return stateResponse(s.player.Snapshot())
}

// control wraps an argument-less engine operation.
func (s *PlayerService) control(op func()) noArgFunc {
	return func(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
		op()
		return stateResponse(s.player.Snapshot())
	}
}

// Seek moves the playback position. Request: {"seconds": number}.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	seconds, ok := numberField(req.Msg, "seconds")
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("seconds is required"))
	}
	s.player.Seek(seconds)
	return stateResponse(s.player.Snapshot())
}

// PlayPlaylist plays a whole playlist.
// Request: {"playlistId": string, "shuffle": bool, "sortBy": string}.
func (s *PlayerService) PlayPlaylist(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	tracks, err := s.load(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	if boolField(req.Msg, "shuffle") {
		s.player.PlayAllShuffled(tracks)
	} else {
		s.player.PlayAll(tracks)
	}
	return stateResponse(s.player.Snapshot())
}

// PlayTrack plays one track of a playlist with the playlist as its queue.
// Request: {"playlistId": string, "trackId": string, "sortBy": string}.
func (s *PlayerService) PlayTrack(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	trackID := stringField(req.Msg, "trackId")
	if trackID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("trackId is required"))
	}

	tracks, err := s.load(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	t, ok := playlist.Tracks(tracks).Find(trackID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, errors.Newf("track %s is not in the playlist", trackID))
	}
	s.player.PlayTrack(t, tracks)
	return stateResponse(s.player.Snapshot())
}

// load fetches the tracks of the requested playlist.
func (s *PlayerService) load(ctx context.Context, msg *structpb.Struct) ([]track.Track, error) {
	id := stringField(msg, "playlistId")
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("playlistId is required"))
	}

	resp, err := s.tracks.PlaylistTracks(ctx, id, stringField(msg, "sortBy"))
	if err != nil {
		zlog.Warn().Msgf("connect: failed to load playlist %s: %v", id, err)
		return nil, toConnectError(err)
	}
	return resp.Items, nil
}

// toConnectError maps catalog and upstream failures to RPC codes.
func toConnectError(err error) error {
	var se *jellyfin.StatusError
	switch {
	case errors.Is(err, catalog.ErrMissingID):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, catalog.ErrNotConfigured), errors.Is(err, catalog.ErrMissingUser), errors.Is(err, jellyfin.ErrNotConfigured):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.As(err, &se):
		switch se.Code {
		case http.StatusNotFound:
			return connect.NewError(connect.CodeNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return connect.NewError(connect.CodePermissionDenied, err)
		default:
			return connect.NewError(connect.CodeUnavailable, err)
		}
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// stateResponse encodes a snapshot with its JSON field names.
func stateResponse(snap playback.Snapshot) (*connect.Response[structpb.Struct], error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.Wrap(err, "failed to encode state"))
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.Wrap(err, "failed to encode state"))
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.Wrap(err, "failed to encode state"))
	}
	return connect.NewResponse(st), nil
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func numberField(s *structpb.Struct, key string) (float64, bool) {
	v, ok := s.GetFields()[key].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return v.NumberValue, true
}
