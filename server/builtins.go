package server

import (
	"sort"

	"github.com/nasa-jpl/katcp/core"
	"github.com/nasa-jpl/katcp/sampler"
	"github.com/nasa-jpl/katcp/sensor"
	"github.com/nasa-jpl/katcp/util"
)

func (s *Server) registerBuiltins() {
	s.handlers["help"] = handlerEntry{fn: s.handleHelp, help: "list available requests"}
	s.handlers["watchdog"] = handlerEntry{fn: s.handleWatchdog, help: "check server liveness"}
	s.handlers["version-list"] = handlerEntry{fn: s.handleVersionList, help: "list component versions"}
	s.handlers["client-list"] = handlerEntry{fn: s.handleClientList, help: "list connected clients"}
	s.handlers["sensor-list"] = handlerEntry{fn: s.handleSensorList, help: "list available sensors"}
	s.handlers["sensor-value"] = handlerEntry{fn: s.handleSensorValue, help: "read current sensor values"}
	s.handlers["sensor-sampling"] = handlerEntry{fn: s.handleSensorSampling, help: "configure sensor sampling strategy"}
	s.handlers["halt"] = handlerEntry{fn: s.handleHalt, help: "shut the server down"}
}

func argString(req *core.Message, i int) (string, bool) {
	if i >= len(req.Arguments) {
		return "", false
	}
	v, err := core.DecodeAs[string](req.Arguments[i])
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *Server) handleHelp(c *ClientConn, req *core.Message) ([]interface{}, error) {
	s.mu.Lock()
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	handlers := s.handlers
	s.mu.Unlock()

	if name, ok := argString(req, 0); ok {
		entry, exists := handlers[name]
		if !exists {
			return nil, Fail("unknown request %q", name)
		}
		if err := c.Inform(req.Mid, "help", name, entry.help); err != nil {
			return nil, err
		}
		return []interface{}{1}, nil
	}

	n := 0
	for _, name := range names {
		if err := c.Inform(req.Mid, "help", name, handlers[name].help); err != nil {
			return nil, err
		}
		n++
	}
	return []interface{}{n}, nil
}

func (s *Server) handleWatchdog(c *ClientConn, req *core.Message) ([]interface{}, error) {
	return nil, nil
}

func (s *Server) handleVersionList(c *ClientConn, req *core.Message) ([]interface{}, error) {
	s.mu.Lock()
	versions := util.UniqueString(s.versions)
	s.mu.Unlock()
	for _, v := range versions {
		if err := c.Inform(req.Mid, "version-list", v); err != nil {
			return nil, err
		}
	}
	return []interface{}{len(versions)}, nil
}

func (s *Server) handleClientList(c *ClientConn, req *core.Message) ([]interface{}, error) {
	addrs := s.ClientAddrs()
	for _, a := range addrs {
		if err := c.Inform(req.Mid, "client-list", a); err != nil {
			return nil, err
		}
	}
	return []interface{}{len(addrs)}, nil
}

func (s *Server) handleSensorList(c *ClientConn, req *core.Message) ([]interface{}, error) {
	pattern, _ := argString(req, 0)
	matches, err := s.Sensors.Match(pattern)
	if err != nil {
		return nil, Fail("%s", err)
	}
	for _, sen := range matches {
		args := []interface{}{sen.Name(), sen.Description(), sen.Units(), sen.WireType()}
		for _, tok := range sen.EnumTokens() {
			args = append(args, tok)
		}
		if err := c.Inform(req.Mid, "sensor-list", args...); err != nil {
			return nil, err
		}
	}
	return []interface{}{len(matches)}, nil
}

func (s *Server) handleSensorValue(c *ClientConn, req *core.Message) ([]interface{}, error) {
	pattern, _ := argString(req, 0)
	matches, err := s.Sensors.Match(pattern)
	if err != nil {
		return nil, Fail("%s", err)
	}
	for _, sen := range matches {
		r := sen.Reading()
		if err := c.Inform(req.Mid, "sensor-value", r.Timestamp, 1, sen.Name(), r.Status, r.Value); err != nil {
			return nil, err
		}
	}
	return []interface{}{len(matches)}, nil
}

func (s *Server) handleSensorSampling(c *ClientConn, req *core.Message) ([]interface{}, error) {
	name, ok := argString(req, 0)
	if !ok {
		return nil, Fail("missing sensor name")
	}
	strategyToken, ok := argString(req, 1)
	if !ok {
		return nil, Fail("missing sampling strategy")
	}
	sen, exists := s.Sensors.Get(name)
	if !exists {
		return nil, Fail("unknown sensor %q", name)
	}
	strategy, err := sampler.ParseStrategy(strategyToken)
	if err != nil {
		return nil, Fail("unknown strategy %q", strategyToken)
	}

	params := make([]string, 0, len(req.Arguments)-2)
	for i := 2; i < len(req.Arguments); i++ {
		p, _ := argString(req, i)
		params = append(params, p)
	}

	smp, err := sampler.New(sen, func(r sensor.Reading) error {
		return c.Inform(0, "sensor-status", r.Timestamp, 1, name, r.Status, r.Value)
	}, strategy, params)
	if err != nil {
		return nil, Fail("%s", err)
	}
	c.setSampler(name, smp)
	smp.Start()

	reply := []interface{}{strategyToken}
	for _, p := range params {
		reply = append(reply, p)
	}
	return reply, nil
}

func (s *Server) handleHalt(c *ClientConn, req *core.Message) ([]interface{}, error) {
	go s.Halt()
	return nil, nil
}
