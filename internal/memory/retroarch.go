package memory

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	retroArchChunk   = 2048
	retroArchMaxResp = 65536
)

// errStaleResponse marks a reply to an earlier request that timed out.
var errStaleResponse = errors.New("stale response")

// RetroArchConfig configures the network command client.
type RetroArchConfig struct {
	Address   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables pacing
	Burst     int
}

// RetroArch reads core memory over RetroArch's UDP command interface.
// It only serves the System Bus, so every Reader access takes the fallback path.
type RetroArch struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	limiter *rate.Limiter
	resp    []byte
}

// DialRetroArch opens the UDP socket. No traffic is sent until the first read.
func DialRetroArch(cfg RetroArchConfig) (*RetroArch, error) {
	conn, err := net.Dial("udp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("dialing retroarch at %s: %w", cfg.Address, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &RetroArch{
		conn:    conn,
		timeout: timeout,
		limiter: limiter,
		resp:    make([]byte, retroArchMaxResp),
	}, nil
}

// Close releases the socket.
func (c *RetroArch) Close() error {
	return c.conn.Close()
}

// ReadDomain implements Bus.
func (c *RetroArch) ReadDomain(domain string, offset uint32, buf []byte) error {
	if domain != DomainSystemBus {
		return fmt.Errorf("%s: %w", domain, ErrUnavailable)
	}
	if !c.limiter.Allow() {
		return ErrThrottled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for done := 0; done < len(buf); {
		n := min(len(buf)-done, retroArchChunk)
		addr := offset + uint32(done)
		if err := c.readChunk(addr, buf[done:done+n]); err != nil {
			return err
		}
		done += n
	}
	return nil
}

func (c *RetroArch) readChunk(addr uint32, out []byte) error {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("setting deadline: %w", err)
	}
	if _, err := fmt.Fprintf(c.conn, "READ_CORE_MEMORY %x %d\n", addr, len(out)); err != nil {
		return fmt.Errorf("sending read command: %w", err)
	}
	// Late replies to timed-out requests are still queued on the socket.
	// Skip them until ours arrives or the deadline passes.
	for {
		n, err := c.conn.Read(c.resp)
		if err != nil {
			return fmt.Errorf("reading response for 0x%x: %w", addr, err)
		}
		data, err := parseReadResponse(string(c.resp[:n]), addr, len(out))
		if errors.Is(err, errStaleResponse) {
			continue
		}
		if err != nil {
			return err
		}
		copy(out, data)
		return nil
	}
}

// parseReadResponse decodes "READ_CORE_MEMORY <addr> <hex bytes...>".
// A "-1" payload means the core refused the address.
func parseReadResponse(resp string, addr uint32, n int) ([]byte, error) {
	fields := strings.Fields(resp)
	if len(fields) < 3 || fields[0] != "READ_CORE_MEMORY" {
		return nil, fmt.Errorf("malformed response %q", truncate(resp, 40))
	}
	got, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil || uint32(got) != addr {
		return nil, fmt.Errorf("response for 0x%s, want 0x%x: %w", fields[1], addr, errStaleResponse)
	}
	if fields[2] == "-1" {
		return nil, fmt.Errorf("0x%x: %w", addr, ErrUnavailable)
	}
	if len(fields)-2 < n {
		return nil, fmt.Errorf("short response: %d of %d bytes", len(fields)-2, n)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := hex.DecodeString(fields[2+i])
		if err != nil || len(b) != 1 {
			return nil, fmt.Errorf("bad byte %q at %d", fields[2+i], i)
		}
		out[i] = b[0]
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
