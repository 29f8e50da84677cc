package adapter

import (
	"fmt"

	"github.com/ssargent/framerec/pkg/codec"
	"github.com/ssargent/framerec/pkg/types"
)

// Chooser serializes ChooserData as three consecutive fields:
//
//	[string array options][string default][string selected]
type Chooser struct{}

// NewChooser returns the chooser adapter
func NewChooser() *Chooser {
	return &Chooser{}
}

func (c *Chooser) DataType() *types.DataType {
	return types.Chooser
}

func (c *Chooser) Serialize(value any) ([]byte, error) {
	data, err := c.cast(value)
	if err != nil {
		return nil, err
	}
	size, err := c.size(data)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, size)
	buf = codec.AppendStringArray(buf, data.Options)
	buf = codec.AppendString(buf, data.Default)
	buf = codec.AppendString(buf, data.Selected)
	return buf, nil
}

func (c *Chooser) Deserialize(buf []byte, pos int) (any, error) {
	r := codec.NewReader(buf, pos)
	options, err := r.StringArray()
	if err != nil {
		return nil, fmt.Errorf("chooser options: %w", err)
	}
	def, err := r.String()
	if err != nil {
		return nil, fmt.Errorf("chooser default option: %w", err)
	}
	selected, err := r.String()
	if err != nil {
		return nil, fmt.Errorf("chooser selected option: %w", err)
	}
	return types.ChooserData{Options: options, Default: def, Selected: selected}, nil
}

func (c *Chooser) SerializedSize(value any) (int, error) {
	data, err := c.cast(value)
	if err != nil {
		return 0, err
	}
	return c.size(data)
}

func (c *Chooser) CleanUp() error {
	return nil
}

func (c *Chooser) size(data types.ChooserData) (int, error) {
	size := codec.SizeOfStringArray(data.Options) +
		codec.SizeOfString(data.Default) +
		codec.SizeOfString(data.Selected)
	if err := codec.CheckLength(size); err != nil {
		return 0, fmt.Errorf("chooser: %w", err)
	}
	return size, nil
}

func (c *Chooser) cast(value any) (types.ChooserData, error) {
	switch v := value.(type) {
	case types.ChooserData:
		return v, nil
	case *types.ChooserData:
		if v != nil {
			return *v, nil
		}
	}
	return types.ChooserData{}, fmt.Errorf("%w: chooser adapter expects types.ChooserData, got %T", ErrTypeMismatch, value)
}
