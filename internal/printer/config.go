package printer

import (
	"fmt"
	"time"
)

const (
	ModeNone = "none"
	ModeTCP  = "tcp"
	ModeAMQP = "amqp"
)

type Config struct {
	Mode     string
	Addr     string
	Timeout  time.Duration
	AMQPURL  string
	Exchange string
}

// Open builds the printer selected by cfg.Mode. The returned close func is never nil.
func Open(cfg Config) (Printer, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.Mode {
	case "", ModeNone:
		return Noop{}, noClose, nil
	case ModeTCP:
		if cfg.Addr == "" {
			return nil, noClose, fmt.Errorf("printer mode %s needs an address", cfg.Mode)
		}
		return NewESCPOS(cfg.Addr, cfg.Timeout), noClose, nil
	case ModeAMQP:
		if cfg.AMQPURL == "" {
			return nil, noClose, fmt.Errorf("printer mode %s needs an AMQP url", cfg.Mode)
		}
		q, err := DialQueue(cfg.AMQPURL, cfg.Exchange, cfg.Timeout)
		if err != nil {
			return nil, noClose, err
		}
		return q, q.Close, nil
	}
	return nil, noClose, fmt.Errorf("unknown printer mode %q", cfg.Mode)
}
