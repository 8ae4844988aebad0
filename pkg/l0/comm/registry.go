package comm

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Built-in message formats, always registered with fixed ids.
const (
	IdentifyResponseFormat = "identify_response offset=%u data=%.*s"
	IdentifyFormat         = "identify offset=%u count=%c"
)

// Handler is invoked with the parsed arguments of a command.
type Handler func(Args)

// Responder sends a response message, the MCU end of the link.
type Responder interface {
	SendResponse(msg *Message, args ...interface{})
}

// Registry holds the message dictionary shared by both ends of the
// link: command and response formats with their ids, constants and
// version strings.
type Registry struct {
	Version       string
	BuildVersions string

	messages  []*Message
	commands  map[int]bool
	handlers  map[int]Handler
	names     map[string]*Message
	constants map[string]interface{}
	dict      []byte
}

// NewRegistry creates a registry with the identify messages.
func NewRegistry() *Registry {
	r := newRegistry()
	r.MustAddResponse(IdentifyResponseFormat)
	r.MustAddCommand(IdentifyFormat, nil)
	return r
}

func newRegistry() *Registry {
	return &Registry{
		commands:  make(map[int]bool),
		handlers:  make(map[int]Handler),
		names:     make(map[string]*Message),
		constants: make(map[string]interface{}),
	}
}

func (r *Registry) add(format string, command bool) (*Message, error) {
	m, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if _, exist := r.names[m.Name]; exist {
		return nil, &FormatError{Format: format, Reason: "duplicated name"}
	}
	m.ID = len(r.messages)
	r.messages = append(r.messages, m)
	r.names[m.Name] = m
	r.commands[m.ID] = command
	r.dict = nil
	return m, nil
}

// AddCommand registers a command format and its handler.
func (r *Registry) AddCommand(format string, handler Handler) (*Message, error) {
	m, err := r.add(format, true)
	if err == nil && handler != nil {
		r.handlers[m.ID] = handler
	}
	return m, err
}

// MustAddCommand is AddCommand panicking on error.
func (r *Registry) MustAddCommand(format string, handler Handler) *Message {
	m, err := r.AddCommand(format, handler)
	if err != nil {
		panic(err)
	}
	return m
}

// AddResponse registers a response format.
func (r *Registry) AddResponse(format string) (*Message, error) {
	return r.add(format, false)
}

// MustAddResponse is AddResponse panicking on error.
func (r *Registry) MustAddResponse(format string) *Message {
	m, err := r.AddResponse(format)
	if err != nil {
		panic(err)
	}
	return m
}

// SetHandler replaces the handler of a registered command.
func (r *Registry) SetHandler(name string, handler Handler) error {
	m := r.names[name]
	if m == nil || !r.commands[m.ID] {
		return &UnknownMessageError{ID: -1, Name: name}
	}
	r.handlers[m.ID] = handler
	return nil
}

// AddConstant publishes a constant in the dictionary.
func (r *Registry) AddConstant(name string, value interface{}) {
	r.constants[name] = value
	r.dict = nil
}

// Constant returns a published constant.
func (r *Registry) Constant(name string) (interface{}, bool) {
	v, ok := r.constants[name]
	return v, ok
}

// Command looks up a command by id with its handler.
func (r *Registry) Command(id int) (*Message, Handler, bool) {
	if id < 0 || id >= len(r.messages) || !r.commands[id] {
		return nil, nil, false
	}
	return r.messages[id], r.handlers[id], true
}

// ByID looks up any message by id.
func (r *Registry) ByID(id int) *Message {
	if id < 0 || id >= len(r.messages) {
		return nil
	}
	return r.messages[id]
}

// Message looks up any message by name.
func (r *Registry) Message(name string) *Message {
	return r.names[name]
}

// Messages lists names of registered commands or responses, sorted.
func (r *Registry) Messages(commands bool) []string {
	var names []string
	for _, m := range r.messages {
		if m != nil && r.commands[m.ID] == commands {
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return names
}

type dictionary struct {
	Commands      map[string]int         `json:"commands"`
	Responses     map[string]int         `json:"responses"`
	Config        map[string]interface{} `json:"config"`
	Version       string                 `json:"version"`
	BuildVersions string                 `json:"build_versions"`
}

// Dictionary returns the zlib compressed JSON data dictionary served
// by identify.
func (r *Registry) Dictionary() []byte {
	if r.dict != nil {
		return r.dict
	}
	d := dictionary{
		Commands:      make(map[string]int),
		Responses:     make(map[string]int),
		Config:        r.constants,
		Version:       r.Version,
		BuildVersions: r.BuildVersions,
	}
	for _, m := range r.messages {
		if m == nil {
			continue
		}
		if r.commands[m.ID] {
			d.Commands[m.Format] = m.ID
		} else {
			d.Responses[m.Format] = m.ID
		}
	}
	raw, err := json.Marshal(&d)
	if err != nil {
		panic(err)
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(raw)
	w.Close()
	r.dict = buf.Bytes()
	return r.dict
}

// IdentifyHandler serves dictionary chunks through resp.
func (r *Registry) IdentifyHandler(resp Responder) Handler {
	return func(args Args) {
		dict := r.Dictionary()
		offset, count := int(args.Uint(0)), int(args.Uint(1))
		var chunk []byte
		if offset < len(dict) {
			if chunk = dict[offset:]; len(chunk) > count {
				chunk = chunk[:count]
			}
		}
		resp.SendResponse(r.messages[0], args.Uint(0), chunk)
	}
}

// LoadDictionary builds a host side registry from a compressed
// dictionary. Message ids are taken from the dictionary.
func LoadDictionary(data []byte) (*Registry, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	var d dictionary
	if err = json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	r := newRegistry()
	r.Version, r.BuildVersions = d.Version, d.BuildVersions
	for k, v := range d.Config {
		r.constants[k] = v
	}
	load := func(formats map[string]int, command bool) error {
		for format, id := range formats {
			m, err := ParseFormat(format)
			if err != nil {
				return err
			}
			if id < 0 || id > 0xffff {
				return &FormatError{Format: format, Reason: fmt.Sprintf("bad id %d", id)}
			}
			for len(r.messages) <= id {
				r.messages = append(r.messages, nil)
			}
			if r.messages[id] != nil {
				return &FormatError{Format: format, Reason: fmt.Sprintf("duplicated id %d", id)}
			}
			m.ID = id
			r.messages[id] = m
			r.names[m.Name] = m
			r.commands[id] = command
		}
		return nil
	}
	if err = load(d.Commands, true); err != nil {
		return nil, err
	}
	if err = load(d.Responses, false); err != nil {
		return nil, err
	}
	r.dict = data
	return r, nil
}
