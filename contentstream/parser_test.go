package contentstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfcore/core"
)

func parse(t *testing.T, input string) ([]Operation, *core.Warnings) {
	t.Helper()
	w := core.NewWarnings(nil)
	p := NewParser([]byte(input))
	p.SetWarnings(w)
	return p.Parse(), w
}

// TestParseSimpleOperator tests parsing a simple operator with no operands
func TestParseSimpleOperator(t *testing.T) {
	ops, w := parse(t, "q")
	require.Len(t, ops, 1)
	assert.Equal(t, "q", ops[0].Operator)
	assert.Empty(t, ops[0].Operands)
	assert.Zero(t, w.Len())
}

func TestParseOperandTypes(t *testing.T) {
	ops, w := parse(t, `1 -2.5 (a\)b) <48656C6C6F> /F#31 [1 [2]] <</K 1 /S (x)>> true false null Op`)
	require.Len(t, ops, 1)
	assert.Zero(t, w.Len())

	want := []core.Object{
		core.Int(1),
		core.Real(-2.5),
		core.String("a)b"),
		core.String("Hello"),
		core.Name("F1"),
		core.Array{core.Int(1), core.Array{core.Int(2)}},
		core.Dict{"K": core.Int(1), "S": core.String("x")},
		core.Bool(true),
		core.Bool(false),
		core.Null{},
	}
	assert.Equal(t, "Op", ops[0].Operator)
	assert.Equal(t, want, ops[0].Operands)
}

func TestParseOperatorSequence(t *testing.T) {
	ops, _ := parse(t, "q 1 0 0 1 50 50 cm\n% comment\n0 0 m 10 10 l S Q")

	var names []string
	for _, op := range ops {
		names = append(names, op.Operator)
	}
	assert.Equal(t, []string{"q", "cm", "m", "l", "S", "Q"}, names)
	assert.Len(t, ops[1].Operands, 6)
	assert.Equal(t, int64(16), ops[1].Offset)
}

func TestParseTextOperators(t *testing.T) {
	ops, _ := parse(t, `BT /F1 12 Tf [(Hel) -120 (lo)] TJ (a) ' 1 2 (b) " ET`)
	require.Len(t, ops, 6)

	assert.Equal(t, []core.Object{core.Name("F1"), core.Int(12)}, ops[1].Operands)
	assert.Equal(t, core.Array{core.String("Hel"), core.Int(-120), core.String("lo")}, ops[2].Operands[0])
	assert.Equal(t, "'", ops[3].Operator)
	assert.Equal(t, "\"", ops[4].Operator)
	assert.Len(t, ops[4].Operands, 3)
}

func TestParseRecovery(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		operators []string
		operands  []int
		warnings  int
	}{
		{"stray paren drops operands", "1 2 ) m 3 4 l", []string{"m", "l"}, []int{0, 2}, 1},
		{"stray brace", "{ 5 w }", []string{"w"}, []int{1}, 2},
		{"operator inside array", "[1 2 Tj 3] TJ", []string{"Tj", "TJ"}, []int{1, 1}, 2},
		{"trailing operands", "0 0 m 1 2", []string{"m"}, []int{2}, 1},
		{"unterminated dictionary", "/P <</MCID 0 BDC EMC", []string{"BDC", "EMC"}, []int{2, 0}, 1},
		{"unbalanced close", "] >> q", []string{"q"}, []int{0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, w := parse(t, tt.input)
			require.Len(t, ops, len(tt.operators))
			for i, op := range ops {
				assert.Equal(t, tt.operators[i], op.Operator)
				assert.Len(t, op.Operands, tt.operands[i], "operands of %s", op.Operator)
			}
			assert.Equal(t, tt.warnings, w.Len(), "%v", w.List())
			for _, warn := range w.List() {
				assert.Equal(t, "content", warn.Component)
			}
		})
	}
}

func TestParseNextIsIncremental(t *testing.T) {
	p := NewParser([]byte("q Q"))
	op, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, "q", op.Operator)
	op, ok = p.Next()
	require.True(t, ok)
	assert.Equal(t, "Q", op.Operator)
	_, ok = p.Next()
	assert.False(t, ok)
}

func TestInlineImage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		data  []byte
		dict  core.Dict
	}{
		{
			name:  "length from geometry",
			input: "BI /W 2 /H 2 /BPC 8 /CS /G ID \x20EI\x20 EI Q",
			data:  []byte(" EI "),
			dict: core.Dict{
				"Width": core.Int(2), "Height": core.Int(2),
				"BitsPerComponent": core.Int(8), "ColorSpace": core.Name("DeviceGray"),
			},
		},
		{
			name:  "scan for EI",
			input: "BI /F /AHx /W 1 /H 1 ID xEIy EI Q",
			data:  []byte("xEIy"),
			dict:  core.Dict{"Filter": core.Name("AHx"), "Width": core.Int(1), "Height": core.Int(1)},
		},
		{
			name:  "explicit length",
			input: "BI /F /A85 /L 5 ID a EI~ EI Q",
			data:  []byte("a EI~"),
			dict:  core.Dict{"Filter": core.Name("A85"), "Length": core.Int(5)},
		},
		{
			name:  "indexed color space",
			input: "BI /W 4 /H 1 /BPC 2 /CS [/I /RGB 1 <000000FFFFFF>] ID \xe4 EI Q",
			data:  []byte{0xe4},
			dict: core.Dict{
				"Width": core.Int(4), "Height": core.Int(1), "BitsPerComponent": core.Int(2),
				"ColorSpace": core.Array{core.Name("Indexed"), core.Name("DeviceRGB"), core.Int(1),
					core.String("\x00\x00\x00\xff\xff\xff")},
			},
		},
		{
			name:  "image mask",
			input: "BI /IM true /W 10 /H 2 ID \x00\xff\x0f\xf0 EI Q",
			data:  []byte{0x00, 0xff, 0x0f, 0xf0},
			dict:  core.Dict{"ImageMask": core.Bool(true), "Width": core.Int(10), "Height": core.Int(2)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, w := parse(t, tt.input)
			require.Len(t, ops, 2, "%v", w.List())
			require.NotNil(t, ops[0].Image)
			assert.Equal(t, "BI", ops[0].Operator)
			assert.Equal(t, tt.dict, ops[0].Image.Dict)
			assert.Equal(t, tt.data, ops[0].Image.Data)
			assert.Equal(t, "Q", ops[1].Operator)
			assert.Zero(t, w.Len())
		})
	}
}

func TestInlineImageWithoutEI(t *testing.T) {
	ops, w := parse(t, "BI /W 1 /H 1 /F /DCT ID \xff\xd8\xff")
	require.Len(t, ops, 1)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, ops[0].Image.Data)
	require.Equal(t, 1, w.Len())
	assert.Contains(t, w.List()[0].Message, "no EI")
}

func TestInlineImageWrongLength(t *testing.T) {
	ops, w := parse(t, "BI /F /AHx /L 2 ID 0102> EI Q")
	require.Len(t, ops, 2)
	assert.Equal(t, []byte("0102>"), ops[0].Image.Data)
	assert.Equal(t, 1, w.Len())
}
