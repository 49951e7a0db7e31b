package ftpkit

import (
	"context"
	"net"
	"time"

	"github.com/jlaffaye/ftp"
)

// socketBufferBytes sets both SO_RCVBUF and SO_SNDBUF on every dialed
// control connection to 1 MiB, matching the throughput the
// bulk transfer engine expects from a pooled connection under load.
const socketBufferBytes = 1 << 20

// socketLingerTimeout forces an immediate RST on close (SO_LINGER{on:1,
// timeout:0}) instead of the usual FIN/TIME_WAIT sequence. This is
// deliberate: a pool that churns many short-lived sockets under load can
// otherwise exhaust the ephemeral port range in TIME_WAIT. Do not remove it.
const socketLingerTimeout = 0

// tunedDialFunc returns a dial function for ftp.DialWithDialFunc that
// applies the pool's socket tuning to every connection it opens. ctx bounds
// only the first dial, the control connection: the library reuses this
// function for every later data connection, and those are dialed after
// Pool.Open has returned and cancelled ctx, so they are bounded by timeout
// alone.
func tunedDialFunc(ctx context.Context, timeout time.Duration) func(network, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	controlDialed := false
	return func(network, address string) (net.Conn, error) {
		dialCtx := ctx
		if controlDialed {
			dialCtx = context.Background()
		}
		controlDialed = true
		conn, err := dialer.DialContext(dialCtx, network, address)
		if err != nil {
			return nil, err
		}
		tcpConn, ok := conn.(*net.TCPConn)
		if !ok {
			return conn, nil
		}
		if err := tuneSocket(tcpConn); err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		return tcpConn, nil
	}
}

// tuneSocket applies the socket options required of every pooled control
// connection. Failures here are fatal to the connection: a half-tuned
// socket is worse than no connection at all.
func tuneSocket(conn *net.TCPConn) error {
	if err := conn.SetReadBuffer(socketBufferBytes); err != nil {
		return err
	}
	if err := conn.SetWriteBuffer(socketBufferBytes); err != nil {
		return err
	}
	if err := conn.SetNoDelay(true); err != nil {
		return err
	}
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}
	if err := conn.SetLinger(socketLingerTimeout); err != nil {
		return err
	}
	return nil
}

// dialOptions builds the ftp.DialOption set for a pooled connection,
// combining the tuned dial function with ExtraOptions-driven transport
// toggles.
func dialOptions(ctx context.Context, p *ConnectionParameters) []ftp.DialOption {
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(p.Timeout),
		ftp.DialWithDialFunc(tunedDialFunc(ctx, p.Timeout)),
	}

	if p.ExtraOptions["disable_epsv"] == "true" {
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}
	if p.ExtraOptions["disable_utf8"] == "true" {
		opts = append(opts, ftp.DialWithDisabledUTF8(true))
	}
	if p.ExtraOptions["disable_mlsd"] == "true" {
		opts = append(opts, ftp.DialWithDisabledMLSD(true))
	}

	return opts
}

// dialAndLogin opens a single tuned, authenticated control connection.
func dialAndLogin(ctx context.Context, p *ConnectionParameters) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(p.Addr(), dialOptions(ctx, p)...)
	if err != nil {
		return nil, &FTPError{Op: "dial", Target: p.Addr(), Err: err}
	}
	if err := conn.Login(p.Credentials.Username, p.Credentials.Password); err != nil {
		_ = conn.Quit()
		return nil, &FTPError{Op: "login", Target: p.Addr(), Err: err}
	}
	return conn, nil
}
