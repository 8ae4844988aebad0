package comm

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Response is a decoded message received from the MCU.
type Response struct {
	Message *Message
	Args    Args
}

// Values returns the arguments keyed by parameter name.
func (r *Response) Values() map[string]interface{} {
	return r.Message.Values(r.Args)
}

// String implements fmt.Stringer.
func (r *Response) String() string {
	return fmt.Sprintf("%s %v", r.Message.Name, r.Values())
}

// ResponseHandler receives unsolicited responses.
type ResponseHandler func(*Response)

// Client is the host end of the link. Blocks are sent one at a time,
// each waiting for its acknowledgement.
type Client struct {
	Conn         io.ReadWriter
	RetryTimeout time.Duration
	Retries      int
	// IdentifyChunk is the number of dictionary bytes per identify.
	IdentifyChunk int

	seq      Seq
	parser   Parser
	registry *Registry
	ackCh    chan Seq
	sendLock sync.Mutex

	lock       sync.Mutex
	identified bool
	waiters    map[string][]chan *Response
	handlers   map[string][]ResponseHandler
}

// NewClient creates a client talking over conn.
func NewClient(conn io.ReadWriter) *Client {
	return &Client{
		Conn:          conn,
		RetryTimeout:  250 * time.Millisecond,
		Retries:       5,
		IdentifyChunk: 40,
		seq:           InitialSeq,
		registry:      NewRegistry(),
		ackCh:         make(chan Seq, 4),
		waiters:       make(map[string][]chan *Response),
		handlers:      make(map[string][]ResponseHandler),
	}
}

// Registry returns the dictionary in use. Before Identify it only
// knows the identify messages.
func (c *Client) Registry() *Registry {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.registry
}

// Subscribe registers a handler for responses named name which no
// Query is waiting for.
func (c *Client) Subscribe(name string, handler ResponseHandler) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.handlers[name] = append(c.handlers[name], handler)
}

// Run reads and decodes blocks until ctx is done or the connection
// fails.
func (c *Client) Run(ctx context.Context) error {
	dataCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.readLoop(subCtx, dataCh, errCh)
	var buf []byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case data := <-dataCh:
			buf = append(buf, data...)
		}
		for len(buf) > 0 {
			res, pop, _ := c.parser.FindBlock(buf)
			if res == NeedMore {
				break
			}
			if res == Found {
				c.handleBlock(buf[:pop])
			} else {
				glog.V(3).Infof("discard %d bytes", pop)
			}
			buf = buf[pop:]
		}
		if len(buf) == 0 {
			buf = nil
		}
	}
}

func (c *Client) readLoop(ctx context.Context, dataCh chan []byte, errCh chan error) {
	for {
		buf := make([]byte, MessageMax)
		n, err := c.Conn.Read(buf)
		if n > 0 {
			select {
			case dataCh <- buf[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (c *Client) handleBlock(block []byte) {
	content := BlockContent(block)
	if len(content) == 0 {
		select {
		case c.ackCh <- Seq(block[MessagePosSeq]):
		default:
			glog.V(3).Info("ack dropped")
		}
		return
	}
	reg := c.Registry()
	for pos := 0; pos < len(content); {
		id, n, err := ParseInt(content[pos:])
		if err != nil {
			glog.Warningf("bad response block: %v", err)
			return
		}
		pos += n
		msg := reg.ByID(int(id))
		if msg == nil {
			glog.Warningf("response: %v", &UnknownMessageError{ID: int(id)})
			return
		}
		args, n, err := msg.Parse(content[pos:])
		if err != nil {
			glog.Warningf("response: %v", err)
			return
		}
		pos += n
		c.deliver(&Response{Message: msg, Args: args})
	}
}

func (c *Client) deliver(r *Response) {
	c.lock.Lock()
	var ch chan *Response
	if waiters := c.waiters[r.Message.Name]; len(waiters) > 0 {
		ch = waiters[0]
		c.waiters[r.Message.Name] = waiters[1:]
	}
	handlers := c.handlers[r.Message.Name]
	c.lock.Unlock()
	if ch != nil {
		ch <- r
		return
	}
	for _, h := range handlers {
		h(r)
	}
	if len(handlers) == 0 {
		glog.V(2).Infof("unhandled %s", r)
	}
}

func (c *Client) encode(name string, args []interface{}) ([]byte, error) {
	msg := c.Registry().Message(name)
	if msg == nil {
		if !c.Ready() {
			return nil, fmt.Errorf("%s: %w", name, ErrNotReady)
		}
		return nil, &UnknownMessageError{ID: -1, Name: name}
	}
	return msg.Encode(nil, MessagePayloadMax, args...)
}

// Send sends a command and waits for the MCU to acknowledge it.
func (c *Client) Send(ctx context.Context, name string, args ...interface{}) error {
	content, err := c.encode(name, args)
	if err != nil {
		return err
	}
	c.sendLock.Lock()
	defer c.sendLock.Unlock()
	for retry := 0; retry <= c.Retries; retry++ {
		seq := c.seq
		block, err := AppendBlock(nil, seq, content)
		if err != nil {
			return err
		}
		c.drainAcks()
		if _, err = c.Conn.Write(block); err != nil {
			return err
		}
		acked, err := c.waitAck(ctx, seq)
		if err != nil || acked {
			return err
		}
	}
	return fmt.Errorf("%s: %w", name, ErrNoAck)
}

// Post sends a command without waiting for an acknowledgement, for
// commands which restart or stop the MCU.
func (c *Client) Post(name string, args ...interface{}) error {
	content, err := c.encode(name, args)
	if err != nil {
		return err
	}
	c.sendLock.Lock()
	defer c.sendLock.Unlock()
	block, err := AppendBlock(nil, c.seq, content)
	if err != nil {
		return err
	}
	c.seq = c.seq.Next()
	_, err = c.Conn.Write(block)
	return err
}

func (c *Client) drainAcks() {
	for {
		select {
		case <-c.ackCh:
		default:
			return
		}
	}
}

// waitAck waits for the acknowledgement of seq. An acknowledgement
// for another sequence is a NAK: the MCU expects that sequence, so
// it is adopted for the retransmission.
func (c *Client) waitAck(ctx context.Context, seq Seq) (bool, error) {
	timer := time.NewTimer(c.RetryTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		glog.V(2).Infof("ack timeout, seq %02x", byte(seq))
		return false, nil
	case ack := <-c.ackCh:
		if ack == seq.Next() {
			c.seq = ack
			return true, nil
		}
		glog.V(2).Infof("nak, seq %02x expect %02x", byte(seq), byte(ack))
		c.seq = ack
		return false, nil
	}
}

// Query sends a command and waits for the response named resp.
func (c *Client) Query(ctx context.Context, resp string, name string, args ...interface{}) (*Response, error) {
	ch := make(chan *Response, 1)
	c.lock.Lock()
	c.waiters[resp] = append(c.waiters[resp], ch)
	c.lock.Unlock()
	err := c.Send(ctx, name, args...)
	if err == nil {
		select {
		case r := <-ch:
			return r, nil
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	c.removeWaiter(resp, ch)
	return nil, err
}

func (c *Client) removeWaiter(name string, ch chan *Response) {
	c.lock.Lock()
	defer c.lock.Unlock()
	waiters := c.waiters[name]
	for n, w := range waiters {
		if w == ch {
			c.waiters[name] = append(waiters[:n:n], waiters[n+1:]...)
			return
		}
	}
}

// Identify downloads the data dictionary and switches to it.
func (c *Client) Identify(ctx context.Context) (*Registry, error) {
	var dict []byte
	for {
		r, err := c.Query(ctx, "identify_response", "identify", len(dict), c.IdentifyChunk)
		if err != nil {
			return nil, fmt.Errorf("identify: %w", err)
		}
		if offset := int(r.Args.Uint(0)); offset != len(dict) {
			return nil, fmt.Errorf("identify: offset %d, want %d: %w", offset, len(dict), ErrShortData)
		}
		chunk := r.Args.Bytes(1)
		if len(chunk) == 0 {
			break
		}
		dict = append(dict, chunk...)
	}
	reg, err := LoadDictionary(dict)
	if err != nil {
		return nil, err
	}
	c.lock.Lock()
	c.registry, c.identified = reg, true
	c.lock.Unlock()
	glog.Infof("identified: version %q, %d bytes dictionary", reg.Version, len(dict))
	return reg, nil
}

// Ready reports whether a dictionary was loaded.
func (c *Client) Ready() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.identified
}
