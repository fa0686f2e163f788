package server

import (
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/elvinchan/dbfixture"
	"github.com/elvinchan/dbfixture/service"
)

type FixtureServer struct {
	driver dbfixture.Driver
	logger *slog.Logger
}

// Serve serves driver on l. It returns when l is closed.
func Serve(l net.Listener, driver dbfixture.Driver) error {
	server := rpc.NewServer()
	fs := &FixtureServer{driver: driver, logger: slog.Default()}
	if err := server.RegisterName(service.FixtureServiceName, fs); err != nil {
		return err
	}
	var tempDelay time.Duration // how long to sleep on accept failure
	for {
		conn, err := l.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				fs.logger.Warn("failed accept conn, retrying", "delay", tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0
		go server.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

func (s *FixtureServer) Truncate(req service.TruncateRequest,
	resp *service.Response) error {
	return s.reply(s.driver.Truncate(req.Collections), resp)
}

func (s *FixtureServer) InsertFixtures(req service.InsertFixturesRequest,
	resp *service.Response) error {
	docs, err := service.DecodeDocuments(req.Documents)
	if err != nil {
		return err
	}
	return s.reply(s.driver.InsertFixtures(req.Collection, docs), resp)
}

// reply sends acknowledgment failures as data, everything else as an rpc
// error.
func (s *FixtureServer) reply(err error, resp *service.Response) error {
	if err == nil {
		return nil
	}
	if f := service.NewFailure(err); f != nil {
		resp.Failure = f
		return nil
	}
	s.logger.Error("fixture call failed", "error", err)
	return err
}
