package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mcu.go/pkg/l0/comm"
	"github.com/robotalks/mcu.go/pkg/l1"
	env "github.com/robotalks/mcu.go/pkg/l1/env/host"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Link   *Link
}

// Link is an open serial line to an MCU with its protocol client.
type Link struct {
	Ctx    context.Context
	Cancel func()
	Name   string
	Conn   io.ReadWriteCloser
	Client *comm.Client
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	timeout    = 2 * time.Second

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&DictCmd,
		&SendCmd,
		&QueryCmd,
		&PostCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Command timeout.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Link == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints MCUInfo into friendly string for display.
func FormatInfo(info l1.MCUInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	if info.Meta.Version != "" {
		fmt.Fprintf(&w, " (%s)", info.Meta.Version)
	}
	return w.String()
}

// ParseArgs converts text arguments to the parameter types of msg.
// Integers accept any base prefix understood by strconv; buffers take
// the text as is, or hex bytes when prefixed with "hex:".
func ParseArgs(msg *comm.Message, args []string) ([]interface{}, error) {
	if len(args) != len(msg.Params) {
		return nil, fmt.Errorf("%s expects %d arguments: %s", msg.Name, len(msg.Params), msg.Format)
	}
	values := make([]interface{}, len(args))
	for n, param := range msg.Params {
		arg := args[n]
		if pos := strings.Index(arg, "="); pos >= 0 && arg[:pos] == param.Name {
			arg = arg[pos+1:]
		}
		if param.Type.IsBuffer() {
			if strings.HasPrefix(arg, "hex:") {
				var data []byte
				if _, err := fmt.Sscanf(arg[4:], "%x", &data); err != nil {
					return nil, fmt.Errorf("%s: invalid hex: %v", param.Name, err)
				}
				values[n] = data
			} else {
				values[n] = []byte(arg)
			}
			continue
		}
		var v int64
		if _, err := fmt.Sscan(arg, &v); err != nil {
			return nil, fmt.Errorf("%s: invalid integer %q", param.Name, arg)
		}
		values[n] = v
	}
	return values, nil
}

// Print prints a response honoring OutputJSON.
func (s *Shell) Print(c *ishell.Context, r *comm.Response) {
	if s.OutputJSON {
		out, err := json.Marshal(map[string]interface{}{r.Message.Name: r.Values()})
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(FormatResponse(r))
}

// FormatResponse prints a response as "name key=value ...", with
// buffers shown as text.
func FormatResponse(r *comm.Response) string {
	var w bytes.Buffer
	w.WriteString(r.Message.Name)
	for n, param := range r.Message.Params {
		if param.Type.IsBuffer() {
			fmt.Fprintf(&w, " %s=%q", param.Name, r.Args.Bytes(n))
		} else {
			fmt.Fprintf(&w, " %s=%v", param.Name, r.Message.Values(r.Args)[param.Name])
		}
	}
	return w.String()
}

func (s *Shell) encodeArgs(c *ishell.Context, name string, args []string) ([]interface{}, bool) {
	msg := s.Link.Client.Registry().Message(name)
	if msg == nil {
		c.Err(fmt.Errorf("unknown command %q", name))
		return nil, false
	}
	values, err := ParseArgs(msg, args)
	if err != nil {
		c.Err(err)
		return nil, false
	}
	return values, true
}

// DoSend sends a command and waits for its acknowledgement.
func DoSend(c *ishell.Context, name string, args ...interface{}) error {
	s := ShellFrom(c)
	ctx, cancel := context.WithTimeout(s.Link.Ctx, s.Timeout)
	defer cancel()
	err := s.Link.Client.Send(ctx, name, args...)
	if err != nil {
		c.Err(err)
		return err
	}
	if !s.OutputJSON {
		c.Println("OK")
	}
	return nil
}

// DoQuery sends a command and prints the response named resp.
func DoQuery(c *ishell.Context, resp, name string, args ...interface{}) (*comm.Response, error) {
	s := ShellFrom(c)
	ctx, cancel := context.WithTimeout(s.Link.Ctx, s.Timeout)
	defer cancel()
	r, err := s.Link.Client.Query(ctx, resp, name, args...)
	if err != nil {
		c.Err(err)
		return nil, err
	}
	s.Print(c, r)
	return r, nil
}

// DoPost sends a command which is not acknowledged.
func DoPost(c *ishell.Context, name string, args ...interface{}) error {
	if err := ShellFrom(c).Link.Client.Post(name, args...); err != nil {
		c.Err(err)
		return err
	}
	return nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverMCUs discovers MCUs.
func (s *Shell) DiscoverMCUs(filter func(l1.MCUInfo) bool) ([]l1.MCUInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	infoList, err := connector.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		items := make([]l1.MCUInfo, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return infoList, nil
}

// SelectMCU discovers MCUs and asks for a choice.
func (s *Shell) SelectMCU(filter func(l1.MCUInfo) bool) (*l1.MCUInfo, error) {
	infoList, err := s.DiscoverMCUs(filter)
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 MCUs discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect opens the serial line with conf and identifies the MCU.
func (s *Shell) Connect(name string, conf *env.Config) error {
	link := &Link{Name: name}
	link.Ctx, link.Cancel = context.WithCancel(context.Background())
	conn, err := conf.Connect(link.Ctx)
	if err != nil {
		link.Cancel()
		return err
	}
	link.Conn, link.Client = conn, comm.NewClient(conn)
	go func() {
		err := link.Client.Run(link.Ctx)
		if link.Ctx.Err() == nil {
			s.Shell.Printf("%s: link closed: %v\n", name, err)
		}
	}()
	for _, resp := range []string{"starting", "shutdown"} {
		link.Client.Subscribe(resp, func(r *comm.Response) {
			s.Shell.Printf("\n%s: %s\n", name, FormatResponse(r))
		})
	}
	ctx, cancel := context.WithTimeout(link.Ctx, s.Timeout)
	defer cancel()
	reg, err := link.Client.Identify(ctx)
	if err != nil {
		link.Close()
		return err
	}
	s.Disconnect()
	s.Link = link
	if s.Interactive {
		s.Shell.Printf("%s: version %s, %d commands\n", name, reg.Version, len(reg.Messages(true)))
	}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
	return nil
}

// ConnectRef connects a registered MCU.
func (s *Shell) ConnectRef(ref l1.MCURef) error {
	conf := *s.Config
	conf.Ref, conf.Serial = ref, ""
	return s.Connect(ref.Name(), &conf)
}

// Close closes the link.
func (l *Link) Close() error {
	l.Cancel()
	return l.Conn.Close()
}

// Disconnect disconnects current MCU.
func (s *Shell) Disconnect() {
	if s.Link != nil {
		s.Link.Close()
		s.Link = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		var err error
		switch {
		case s.Config.HasSerial():
			if s.Interactive {
				s.Shell.Printf("Connecting %s ...\n", s.Config.Serial)
			}
			err = s.Connect(s.Config.Serial, s.Config)
		case s.Config.Ref.IsValid():
			if s.Interactive {
				s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
			}
			err = s.ConnectRef(s.Config.Ref)
		}
		if err != nil {
			log.Fatalf("connect failed: %v", err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd discovers MCUs.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverMCUs(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []l1.MCUInfo{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No MCUs found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects an MCU.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "TYPE ID | SERIAL",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var err error
			switch {
			case len(c.Args) >= 2:
				err = s.ConnectRef(l1.MCURef{Type: c.Args[0], ID: c.Args[1]})
			case len(c.Args) == 1 && (strings.Contains(c.Args[0], "://") || strings.HasPrefix(c.Args[0], "/")):
				conf := *s.Config
				conf.Serial = c.Args[0]
				err = s.Connect(conf.Serial, &conf)
			default:
				var filter func(l1.MCUInfo) bool
				if len(c.Args) == 1 {
					filter = func(info l1.MCUInfo) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				var info *l1.MCUInfo
				if info, err = s.SelectMCU(filter); err == nil {
					if info == nil {
						err = fmt.Errorf("no MCU discovered")
					} else {
						err = s.ConnectRef(info.Ref)
					}
				}
			}
			if err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current MCU.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// DictCmd lists the messages of the data dictionary.
	DictCmd = ishell.Cmd{
		Name:    "dict",
		Aliases: []string{"messages"},
		Help:    "[commands|responses]",
		Func: MustBeConnected(func(c *ishell.Context) {
			reg := ShellFrom(c).Link.Client.Registry()
			show := func(commands bool) {
				for _, name := range reg.Messages(commands) {
					c.Println(reg.Message(name).Format)
				}
			}
			if len(c.Args) == 0 || c.Args[0] != "responses" {
				show(true)
			}
			if len(c.Args) == 0 || c.Args[0] == "responses" {
				show(false)
			}
		}),
	}

	// SendCmd sends any command from the dictionary.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "COMMAND [ARGS...]",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("COMMAND required"))
				return
			}
			if args, ok := ShellFrom(c).encodeArgs(c, c.Args[0], c.Args[1:]); ok {
				DoSend(c, c.Args[0], args...)
			}
		}),
	}

	// QueryCmd sends a command and waits for a response.
	QueryCmd = ishell.Cmd{
		Name:    "query",
		Aliases: []string{"q"},
		Help:    "RESPONSE COMMAND [ARGS...]",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("RESPONSE and COMMAND required"))
				return
			}
			if args, ok := ShellFrom(c).encodeArgs(c, c.Args[1], c.Args[2:]); ok {
				DoQuery(c, c.Args[0], c.Args[1], args...)
			}
		}),
	}

	// PostCmd sends a command without waiting for the acknowledgement.
	PostCmd = ishell.Cmd{
		Name: "post",
		Help: "COMMAND [ARGS...]",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("COMMAND required"))
				return
			}
			if args, ok := ShellFrom(c).encodeArgs(c, c.Args[0], c.Args[1:]); ok {
				DoPost(c, c.Args[0], args...)
			}
		}),
	}

	// WatchCmd prints unsolicited responses as they arrive.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "RESPONSE...",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			for _, name := range c.Args {
				link := s.Link
				link.Client.Subscribe(name, func(r *comm.Response) {
					s.Shell.Printf("\n%s: %s\n", link.Name, FormatResponse(r))
				})
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
