package uart

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/mcu.go/pkg/framework"
)

// Line is a FIFO whose far end is a host stream attached at runtime.
// Only one stream is attached at a time; attaching a new one closes
// the previous.
type Line struct {
	*FIFO

	lock sync.Mutex
	conn io.ReadWriteCloser
}

// NewLine creates a Line. With flushByte other than NoFlush,
// transmitted bytes are buffered until flushByte is written.
func NewLine(capacity, flushByte int) *Line {
	l := &Line{FIFO: NewFIFO(capacity, nil)}
	l.FlushByte = flushByte
	return l
}

// Attach connects conn and pumps received bytes into the FIFO until
// conn fails or ctx is done.
func (l *Line) Attach(ctx context.Context, conn io.ReadWriteCloser) error {
	l.lock.Lock()
	if l.conn != nil {
		l.conn.Close()
	}
	l.conn = conn
	if l.FlushByte == NoFlush {
		l.SetOutput(conn)
	} else {
		l.SetOutput(bufio.NewWriterSize(conn, 256))
	}
	l.lock.Unlock()
	defer l.detach(conn)

	return fx.RunWithContextCloser(ctx, conn, func() error {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				l.Feed(buf[:n])
			}
			if err != nil {
				return err
			}
		}
	})
}

// Attached reports whether a stream is connected.
func (l *Line) Attached() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.conn != nil
}

func (l *Line) detach(conn io.ReadWriteCloser) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.conn == conn {
		l.conn = nil
		l.SetOutput(nil)
	}
}

// Server attaches every accepted connection to a Line.
type Server struct {
	Line     *Line
	Listener net.Listener
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, s.Listener, func() error {
		for {
			conn, err := s.Listener.Accept()
			if err != nil {
				return err
			}
			glog.Infof("host connected from %s", conn.RemoteAddr())
			go func() {
				err := s.Line.Attach(ctx, conn)
				glog.Infof("host %s disconnected: %v", conn.RemoteAddr(), err)
			}()
		}
	})
}

// WSServer attaches websocket connections to a Line.
type WSServer struct {
	Line *Line
	Addr string
	Path string
}

// Run implements Runnable.
func (s *WSServer) Run(ctx context.Context) error {
	path := s.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(func(ws *websocket.Conn) {
		ws.PayloadType = websocket.BinaryFrame
		glog.Infof("host connected over websocket from %s", ws.Request().RemoteAddr)
		err := s.Line.Attach(ctx, ws)
		glog.Infof("websocket host disconnected: %v", err)
	}))
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	return fx.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
}
