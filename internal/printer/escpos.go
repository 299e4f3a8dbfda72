package printer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

const (
	DefaultPort    = "9100"
	DefaultTimeout = 5 * time.Second

	lineWidth = 32
)

var (
	cmdInit        = []byte{0x1b, '@'}
	cmdCodePage858 = []byte{0x1b, 't', 19}
	cmdAlignLeft   = []byte{0x1b, 'a', 0}
	cmdAlignCenter = []byte{0x1b, 'a', 1}
	cmdBoldOn      = []byte{0x1b, 'E', 1}
	cmdBoldOff     = []byte{0x1b, 'E', 0}
	cmdSizeDouble  = []byte{0x1d, '!', 0x11}
	cmdSizeNormal  = []byte{0x1d, '!', 0x00}
	cmdCut         = []byte{0x1d, 'V', 66, 3}
)

// ESCPOS writes raw ESC/POS to a network thermal printer (port 9100 by default).
type ESCPOS struct {
	Addr    string
	Timeout time.Duration
	// Location is used for the printed date and time; nil means time.Local.
	Location *time.Location

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewESCPOS(addr string, timeout time.Duration) *ESCPOS {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultPort)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &net.Dialer{}
	return &ESCPOS{Addr: addr, Timeout: timeout, dial: d.DialContext}
}

func (p *ESCPOS) PrintTicket(ctx context.Context, t Ticket) error {
	return p.send(ctx, p.encodeTicket(t))
}

func (p *ESCPOS) Test(ctx context.Context) error {
	var w ticketWriter
	w.raw(cmdInit, cmdCodePage858, cmdAlignCenter)
	w.line("Test de conexión")
	w.line("Impresora conectada correctamente")
	w.feed(2)
	w.raw(cmdCut)
	return p.send(ctx, w.buf.Bytes())
}

func (p *ESCPOS) send(ctx context.Context, b []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %w", ErrUnavailable, p.Addr, err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
	}
	if _, err := conn.Write(b); err != nil {
		return fmt.Errorf("%w: write to %s: %w", ErrUnavailable, p.Addr, err)
	}
	return nil
}

func (p *ESCPOS) encodeTicket(t Ticket) []byte {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	created := t.CreatedAt.In(loc)
	rule := strings.Repeat("=", lineWidth)
	thin := strings.Repeat("-", lineWidth)

	var w ticketWriter
	w.raw(cmdInit, cmdCodePage858, cmdAlignCenter)
	w.line(rule)
	w.raw(cmdBoldOn)
	w.line("COMANDA DE COCINA")
	w.raw(cmdBoldOff)
	w.line(rule)
	if t.Modified {
		w.line("** ORDEN MODIFICADA **")
	}
	if t.WithoutStock {
		w.line("** APROBADA SIN STOCK **")
	}
	w.feed(1)

	w.raw(cmdAlignLeft, cmdBoldOn)
	w.line(fmt.Sprintf("Mesa: %d", t.TableNumber))
	w.line("Mesero: " + t.WaiterName)
	w.raw(cmdBoldOff)
	w.line("Hora: " + created.Format("15:04:05"))
	w.line("Fecha: " + created.Format("02/01/2006"))
	if t.PrepMinutes > 0 {
		w.line(fmt.Sprintf("Tiempo estimado: %d min", t.PrepMinutes))
	}
	w.line(thin)
	w.feed(1)

	for _, l := range t.Lines {
		w.raw(cmdBoldOn, cmdSizeDouble)
		w.line(fmt.Sprintf("%dx %s", l.Quantity, l.Name))
		w.raw(cmdSizeNormal, cmdBoldOff)
		if l.Note != "" {
			w.line("   Obs: " + l.Note)
		}
		w.feed(1)
	}
	w.line(thin)

	if t.Note != "" {
		w.raw(cmdBoldOn)
		w.line("OBSERVACIONES GENERALES:")
		w.raw(cmdBoldOff)
		w.line(t.Note)
		w.line(thin)
	}

	w.feed(1)
	w.raw(cmdAlignCenter)
	w.line(fmt.Sprintf("Orden #%06d", t.OrderID))
	w.line(rule)
	w.feed(2)
	w.raw(cmdCut)
	return w.buf.Bytes()
}

// ticketWriter accumulates printer commands and text. Text is transcoded to
// code page 858; runes outside it print as '?'.
type ticketWriter struct {
	buf bytes.Buffer
}

func (w *ticketWriter) raw(cmds ...[]byte) {
	for _, c := range cmds {
		w.buf.Write(c)
	}
}

func (w *ticketWriter) line(s string) {
	for _, r := range s {
		if b, ok := charmap.CodePage858.EncodeRune(r); ok {
			w.buf.WriteByte(b)
		} else {
			w.buf.WriteByte('?')
		}
	}
	w.buf.WriteByte('\n')
}

func (w *ticketWriter) feed(n int) {
	for i := 0; i < n; i++ {
		w.buf.WriteByte('\n')
	}
}
