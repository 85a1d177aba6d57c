package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/chase3718/midiwire/internal/frame"
)

// UDP sends each frame as one datagram holding the wire record.
type UDP struct {
	*async
	conn  net.PacketConn
	addrs map[string]net.Addr // resolved peers, only touched by the worker
}

// DialUDP opens an unbound UDP socket for sending.
func DialUDP(opts ...Option) (*UDP, error) {
	o := buildOptions(opts)
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("transport: udp socket: %w", err)
	}
	u := &UDP{conn: conn, addrs: make(map[string]net.Addr)}
	u.async = newAsync(o, u.write)
	o.logger.Info("transport: udp ready", "local", conn.LocalAddr().String())
	return u, nil
}

func (u *UDP) write(dst string, rec []byte) (int, error) {
	addr, ok := u.addrs[dst]
	if !ok {
		a, err := net.ResolveUDPAddr("udp", dst)
		if err != nil {
			return 0, fmt.Errorf("transport: resolve %s: %w", dst, err)
		}
		addr = a
		u.addrs[dst] = a
	}
	return u.conn.WriteTo(rec, addr)
}

// Close flushes queued frames and closes the socket.
func (u *UDP) Close() error {
	u.shutdown()
	return u.conn.Close()
}

// UDPListener receives frames sent by UDP.
type UDPListener struct {
	conn   net.PacketConn
	logger *slog.Logger
}

// ListenUDP binds addr (e.g. ":4210").
func ListenUDP(addr string, logger *slog.Logger) (*UDPListener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("transport: listening", "addr", conn.LocalAddr().String())
	return &UDPListener{conn: conn, logger: logger}, nil
}

// Addr returns the bound address.
func (l *UDPListener) Addr() net.Addr { return l.conn.LocalAddr() }

// Serve reads datagrams until ctx is done or the listener is closed.
// Datagrams that are not valid records are logged and skipped.
func (l *UDPListener) Serve(ctx context.Context, handle func(frame.Frame)) error {
	stop := context.AfterFunc(ctx, func() { _ = l.conn.Close() })
	defer stop()

	buf := make([]byte, 2*frame.RecordSize)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("transport: read: %w", err)
		}
		f, err := frame.Decode(buf[:n])
		if err != nil {
			l.logger.Warn("transport: bad datagram", "from", from.String(), "bytes", n, "err", err)
			continue
		}
		handle(f)
	}
}

// Close closes the socket.
func (l *UDPListener) Close() error {
	err := l.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
