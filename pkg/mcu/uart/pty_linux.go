//go:build linux

package uart

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// PTY is a Port backed by a pseudo-terminal master. The slave side is
// published under a symlink so a host can open it like a tty.
type PTY struct {
	fd   int
	link string
	name string
}

// OpenPTY creates the pseudo-terminal and links its slave at link.
func OpenPTY(link string) (*PTY, error) {
	fd, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open ptmx: %w", err)
	}
	p := &PTY{fd: fd, link: link}
	if err = p.setup(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return p, nil
}

func (p *PTY) setup() error {
	if err := unix.IoctlSetPointerInt(p.fd, unix.TIOCSPTLCK, 0); err != nil {
		return fmt.Errorf("unlockpt: %w", err)
	}
	n, err := unix.IoctlGetInt(p.fd, unix.TIOCGPTN)
	if err != nil {
		return fmt.Errorf("ptsname: %w", err)
	}
	p.name = fmt.Sprintf("/dev/pts/%d", n)

	tio, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("tcgetattr: %w", err)
	}
	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB
	tio.Cflag |= unix.CS8
	if err = unix.IoctlSetTermios(p.fd, unix.TCSETS, tio); err != nil {
		return fmt.Errorf("tcsetattr: %w", err)
	}
	if err = unix.SetNonblock(p.fd, true); err != nil {
		return fmt.Errorf("set nonblock: %w", err)
	}

	if p.link != "" {
		os.Remove(p.link)
		if err = os.Symlink(p.name, p.link); err != nil {
			return fmt.Errorf("symlink %s: %w", p.link, err)
		}
	}
	glog.Infof("uart on %s (%s)", p.link, p.name)
	return nil
}

// Name returns the slave device path.
func (p *PTY) Name() string {
	return p.name
}

// Available implements Port.
func (p *PTY) Available() int {
	n, err := unix.IoctlGetInt(p.fd, unix.TIOCINQ)
	if err != nil {
		return 0
	}
	return n
}

// Getc implements Port.
func (p *PTY) Getc() byte {
	var b [1]byte
	if n, err := unix.Read(p.fd, b[:]); n != 1 || err != nil {
		return 0
	}
	return b[0]
}

// Putc implements Port. Bytes are dropped when no host drains the tty.
func (p *PTY) Putc(b byte) {
	if _, err := unix.Write(p.fd, []byte{b}); err != nil {
		glog.V(2).Infof("pty write: %v", err)
	}
}

// Close implements io.Closer.
func (p *PTY) Close() error {
	if p.link != "" {
		os.Remove(p.link)
	}
	return unix.Close(p.fd)
}
