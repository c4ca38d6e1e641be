package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the PlayerService.
type Client struct {
	noArg   map[string]*connect.Client[emptypb.Empty, structpb.Struct]
	withArg map[string]*connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a client for the server at baseURL. token may be empty.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, connect.WithInterceptors(NewTokenInterceptor(token)))

	c := &Client{
		noArg:   make(map[string]*connect.Client[emptypb.Empty, structpb.Struct], len(NoArgProcedures)),
		withArg: make(map[string]*connect.Client[structpb.Struct, structpb.Struct], len(ArgProcedures)),
	}
	for _, name := range NoArgProcedures {
		c.noArg[name] = connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ProcedurePath(name), opts...)
	}
	for _, name := range ArgProcedures {
		c.withArg[name] = connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ProcedurePath(name), opts...)
	}
	return c
}

// Call invokes a procedure by name and returns the resulting player state.
// args is ignored by procedures that take no arguments.
func (c *Client) Call(ctx context.Context, procedure string, args map[string]any) (*structpb.Struct, error) {
	if cl, ok := c.noArg[procedure]; ok {
		resp, err := cl.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
		if err != nil {
			return nil, err
		}
		return resp.Msg, nil
	}

	cl, ok := c.withArg[procedure]
	if !ok {
		return nil, errors.Newf("unknown procedure %q", procedure)
	}
	msg, err := structpb.NewStruct(args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode arguments")
	}
	resp, err := cl.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
