package viewpresenter

import (
	"strings"

	"github.com/park285/chessboard-client/pkg/viewdto"
)

// Presenter delivers formatted views and board images without coupling to the transport.
type Presenter struct {
	formatter   *Formatter
	sendMessage func(message string) error
	sendImage   func(name string, png []byte) error
}

func NewPresenter(formatter *Formatter, sendMessage func(message string) error, sendImage func(name string, png []byte) error) *Presenter {
	return &Presenter{
		formatter:   formatter,
		sendMessage: sendMessage,
		sendImage:   sendImage,
	}
}

// Board sends the diagram and status lines of v, then the image when one is given.
func (p *Presenter) Board(v viewdto.View, name string, image []byte) error {
	if p == nil {
		return nil
	}

	if p.sendMessage != nil {
		parts := []string{}
		if diagram := p.formatter.Text(v); diagram != "" {
			parts = append(parts, diagram)
		}
		parts = append(parts, p.formatter.Lines(v)...)
		if err := p.sendMessage(strings.Join(parts, "\n")); err != nil {
			return err
		}
	}

	if len(image) > 0 && p.sendImage != nil {
		if err := p.sendImage(name, image); err != nil {
			return err
		}
	}
	return nil
}
