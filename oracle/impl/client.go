package impl

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/proto/oraclepb"
	"github.com/leisurelyrcxf/tsoracle/types"
)

// Client talks to the oracle server on behalf of one namespace.
type Client struct {
	oracleClient oraclepb.OracleClient
	conn         *grpc.ClientConn
	namespace    string
}

var (
	_ oracle.TimestampService      = (*Client)(nil)
	_ oracle.TimestampAdminService = (*Client)(nil)
)

func NewClient(serverAddr string, namespace string) (*Client, error) {
	conn, err := grpc.Dial(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:         conn,
		oracleClient: oraclepb.NewOracleClient(conn),
		namespace:    namespace,
	}, nil
}

func (c *Client) GetFreshTimestamp(ctx context.Context) (int64, error) {
	r, err := c.GetFreshTimestamps(ctx, 1)
	if err != nil {
		return 0, err
	}
	return r.Lower, nil
}

func (c *Client) GetFreshTimestamps(ctx context.Context, count int64) (types.TimestampRange, error) {
	resp, err := c.oracleClient.Fetch(ctx, &oraclepb.FetchRequest{Namespace: c.namespace, Count: count})
	if err != nil {
		return types.TimestampRange{}, err
	}
	if resp == nil {
		return types.TimestampRange{}, errors.ErrNilResponse
	}
	if resp.Err != nil {
		return types.TimestampRange{}, errors.NewErrorFromPB(resp.Err)
	}
	if resp.Lower > resp.Upper {
		return types.TimestampRange{}, errors.Annotatef(errors.ErrInvalidRequest, "server returned empty range [%d, %d]", resp.Lower, resp.Upper)
	}
	return types.NewTimestampRange(resp.Lower, resp.Upper), nil
}

func (c *Client) FastForwardTimestamp(ctx context.Context, minimum int64) error {
	resp, err := c.oracleClient.FastForward(ctx, &oraclepb.FastForwardRequest{Namespace: c.namespace, Timestamp: minimum})
	if err != nil {
		return err
	}
	if resp == nil {
		return errors.ErrNilResponse
	}
	if resp.Err != nil {
		return errors.NewErrorFromPB(resp.Err)
	}
	return nil
}

func (c *Client) InvalidateTimestamps(ctx context.Context) error {
	resp, err := c.oracleClient.Invalidate(ctx, &oraclepb.InvalidateRequest{Namespace: c.namespace})
	if err != nil {
		return err
	}
	if resp == nil {
		return errors.ErrNilResponse
	}
	if resp.Err != nil {
		return errors.NewErrorFromPB(resp.Err)
	}
	return nil
}

func (c *Client) TargetAddr() string {
	return c.conn.Target()
}

func (c *Client) Close() error {
	return c.conn.Close()
}
