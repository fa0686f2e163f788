package service

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"

	"github.com/elvinchan/dbfixture"
)

type rpcClient struct {
	*rpc.Client
}

// DialFixtureService connects to a FixtureService. Calls are never retried,
// a failed call fails the operation.
func DialFixtureService(network, address string) (dbfixture.Driver, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	return &FixtureClient{
		rpcClient{
			Client: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)),
		},
	}, nil
}

func (c *rpcClient) close() error {
	return c.Client.Close()
}

func (c *rpcClient) doCall(serviceMethod string, args interface{}, reply interface{}) error {
	return c.Client.Call(serviceMethod, args, reply)
}
