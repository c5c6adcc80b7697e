package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/internal/testpdf"
	"github.com/tsawler/pdfcore/security"
)

func openStore(t *testing.T, data []byte) *Store {
	t.Helper()
	w := core.NewWarnings(nil)
	p := core.NewXRefParser(data)
	p.SetWarnings(w)
	xref, err := p.Parse()
	require.NoError(t, err)
	return NewStore(data, xref, w, core.RecoverScanEndstream)
}

func TestStoreResolvesAndCaches(t *testing.T) {
	b := testpdf.New()
	b.Object(1, core.Dict{"Type": core.Name("Catalog"), "Value": core.Int(1)})
	b.Object(2, core.Array{core.Int(1), core.String("two")})
	b.Xref(core.Dict{"Root": ref(1)})
	s := openStore(t, b.Bytes())

	first, err := s.ResolveReference(ref(2))
	require.NoError(t, err)
	assert.Equal(t, core.Array{core.Int(1), core.String("two")}, first)

	second, err := s.ResolveReference(ref(2))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, s.ObjectCount())
}

func TestStoreMissingAndFreeEntriesAreNull(t *testing.T) {
	b := testpdf.New()
	b.Object(1, core.Dict{"Type": core.Name("Catalog")})
	b.Xref(core.Dict{"Root": ref(1)})
	s := openStore(t, b.Bytes())

	for _, n := range []int{0, 5, 1000} {
		obj, err := s.ResolveReference(ref(n))
		require.NoError(t, err)
		assert.Equal(t, core.Null{}, obj, "object %d", n)
	}

	obj, err := s.ResolveReference(core.IndirectRef{Number: 1, Generation: 3})
	require.NoError(t, err)
	assert.Equal(t, core.Null{}, obj)
	assert.NotZero(t, s.Warnings().Len())
}

func TestStoreObjectStreams(t *testing.T) {
	b := testpdf.New()
	b.Object(1, core.Dict{"Type": core.Name("Catalog"), "Pages": ref(3)})
	b.ObjectStream(2, map[int]core.Object{
		3: core.Dict{"Type": core.Name("Pages"), "Count": core.Int(0), "Kids": core.Array{}},
		4: core.String("packed"),
	})
	b.XrefStream(5, core.Dict{"Root": ref(1)})
	s := openStore(t, b.Bytes())

	pages, ok, err := s.Dict(ref(3))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Name("Pages"), pages["Type"])

	str, err := s.ResolveReference(ref(4))
	require.NoError(t, err)
	assert.Equal(t, core.String("packed"), str)
}

func TestStoreIndirectLength(t *testing.T) {
	b := testpdf.New()
	b.Object(1, core.Dict{"Type": core.Name("Catalog")})
	b.ObjectText(2, "<< /Length 3 0 R >>\nstream\nabcdef\nendstream")
	b.Object(3, core.Int(6))
	b.Xref(core.Dict{"Root": ref(1)})
	s := openStore(t, b.Bytes())

	st, ok, err := s.Stream(ref(2))
	require.NoError(t, err)
	require.True(t, ok)
	data, err := st.Decode()
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))
}

func TestStoreIndirectFilter(t *testing.T) {
	b := testpdf.New()
	b.Object(1, core.Dict{"Type": core.Name("Catalog")})
	b.ObjectText(2, "<< /Length 13 /Filter 3 0 R >>\nstream\n616263646566>\nendstream")
	b.Object(3, core.Array{ref(4)})
	b.Object(4, core.Name("ASCIIHexDecode"))
	b.Xref(core.Dict{"Root": ref(1)})
	s := openStore(t, b.Bytes())

	st, ok, err := s.Stream(ref(2))
	require.NoError(t, err)
	require.True(t, ok)
	data, err := st.Decode()
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))
}

func TestStoreSelfReferentialContainer(t *testing.T) {
	// object 4 claims to live in object stream 4
	data := testpdf.New().
		Object(1, core.Dict{"Type": core.Name("Catalog")}).
		Xref(core.Dict{"Root": ref(1)}).
		Bytes()
	w := core.NewWarnings(nil)
	p := core.NewXRefParser(data)
	xref, err := p.Parse()
	require.NoError(t, err)
	xref.Set(4, core.XRefEntry{Type: core.XRefCompressed, Container: 4, Index: 0})
	s := NewStore(data, xref, w, core.RecoverScanEndstream)

	_, err = s.ResolveReference(ref(4))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCyclicReference)
}

func TestStoreDecryptsStringsAndStreams(t *testing.T) {
	b := testpdf.New()
	b.Encrypt(9, security.Config{Revision: 4, AES: true, UserPassword: "pw", EncryptMetadata: true})
	b.Object(1, core.Dict{"Type": core.Name("Catalog"), "Title": core.String("secret title")})
	b.Stream(2, core.Dict{}, []byte("0 0 m 10 10 l S"))
	b.Xref(core.Dict{"Root": ref(1)})
	require.NoError(t, b.Err())
	data := b.Bytes()
	s := openStore(t, data)

	encDict, ok, err := s.Dict(s.Trailer()["Encrypt"])
	require.NoError(t, err)
	require.True(t, ok)
	h, err := security.NewHandler(encDict, s.Trailer())
	require.NoError(t, err)
	require.NoError(t, h.Authenticate("pw"))
	s.SetDecrypter(h, ref(9))

	cat, _, err := s.Dict(ref(1))
	require.NoError(t, err)
	assert.Equal(t, core.String("secret title"), cat["Title"])

	st, _, err := s.Stream(ref(2))
	require.NoError(t, err)
	content, err := st.Decode()
	require.NoError(t, err)
	assert.Equal(t, "0 0 m 10 10 l S", string(content))

	// the encryption dictionary itself is never decrypted
	again, _, err := s.Dict(ref(9))
	require.NoError(t, err)
	assert.Equal(t, encDict["O"], again["O"])
}
