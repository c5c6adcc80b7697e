// Package security implements the standard security handler: file key
// derivation from a password, password validation and per-object
// decryption of strings and streams.
//
// Revisions 2-4 (RC4 and AES-128) and 5-6 (AES-256) are supported.
package security

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfcore/core"
)

// Algorithm is the cipher applied to one class of data.
type Algorithm int

const (
	AlgorithmNone Algorithm = iota
	AlgorithmRC4
	AlgorithmAES128
	AlgorithmAES256
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmRC4:
		return "RC4"
	case AlgorithmAES128:
		return "AESV2"
	case AlgorithmAES256:
		return "AESV3"
	default:
		return "Identity"
	}
}

// Permissions holds the decoded /P flags.
type Permissions struct {
	Raw               int32
	Print             bool
	Modify            bool
	Copy              bool
	ModifyAnnotations bool
	FillForms         bool
	ExtractAccessible bool
	Assemble          bool
	PrintHighQuality  bool
}

// NewPermissions decodes a /P value.
func NewPermissions(p int32) Permissions {
	return Permissions{
		Raw:               p,
		Print:             p&(1<<2) != 0,
		Modify:            p&(1<<3) != 0,
		Copy:              p&(1<<4) != 0,
		ModifyAnnotations: p&(1<<5) != 0,
		FillForms:         p&(1<<8) != 0,
		ExtractAccessible: p&(1<<9) != 0,
		Assemble:          p&(1<<10) != 0,
		PrintHighQuality:  p&(1<<11) != 0,
	}
}

// Handler is the derived decryption state of one document. It is
// immutable once Authenticate has succeeded.
type Handler struct {
	v, r            int
	keyLen          int // file key length in bytes
	o, u, oe, ue    []byte
	perms           []byte
	p               int32
	id              []byte
	encryptMetadata bool

	stmAlgo Algorithm
	strAlgo Algorithm
	filters map[string]Algorithm

	key []byte
}

// NewHandler reads an /Encrypt dictionary. The trailer supplies the first
// element of /ID. Handlers other than /Standard are rejected with
// ENCRYPTED_PDF since their content cannot be decrypted.
func NewHandler(encrypt, trailer core.Dict) (*Handler, error) {
	if f, _ := encrypt.GetName("Filter"); f != "Standard" {
		return nil, core.Errorf(core.KindEncryptedPDF, "unsupported security handler %q", f)
	}
	h := &Handler{
		v:               intValue(encrypt, "V", 0),
		r:               intValue(encrypt, "R", 2),
		p:               int32(intValue(encrypt, "P", 0)),
		encryptMetadata: true,
		filters:         map[string]Algorithm{},
	}
	if b, ok := encrypt.GetBool("EncryptMetadata"); ok {
		h.encryptMetadata = bool(b)
	}
	h.o = stringValue(encrypt, "O")
	h.u = stringValue(encrypt, "U")
	h.oe = stringValue(encrypt, "OE")
	h.ue = stringValue(encrypt, "UE")
	h.perms = stringValue(encrypt, "Perms")
	if ids, ok := trailer.GetArray("ID"); ok && len(ids) > 0 {
		if s, ok := ids[0].(core.String); ok {
			h.id = []byte(s)
		}
	}

	switch h.v {
	case 0, 1:
		h.keyLen = 5
		h.stmAlgo, h.strAlgo = AlgorithmRC4, AlgorithmRC4
	case 2, 3:
		h.keyLen = intValue(encrypt, "Length", 40) / 8
		h.stmAlgo, h.strAlgo = AlgorithmRC4, AlgorithmRC4
	case 4, 5:
		if err := h.readCryptFilters(encrypt); err != nil {
			return nil, err
		}
	default:
		return nil, core.Errorf(core.KindEncryptedPDF, "unsupported encryption version V=%d", h.v)
	}
	if h.r < 2 || h.r > 6 {
		return nil, core.Errorf(core.KindEncryptedPDF, "unsupported security handler revision R=%d", h.r)
	}
	if h.r >= 5 {
		h.keyLen = 32
	}
	if h.keyLen < 5 || h.keyLen > 32 {
		return nil, core.Errorf(core.KindEncryptedPDF, "invalid key length %d bytes", h.keyLen)
	}
	if len(h.o) < 32 || len(h.u) < 32 {
		return nil, core.Errorf(core.KindEncryptedPDF, "/O or /U entry too short")
	}
	return h, nil
}

// readCryptFilters reads /CF, /StmF and /StrF. Missing /StmF or /StrF mean
// Identity.
func (h *Handler) readCryptFilters(encrypt core.Dict) error {
	h.keyLen = 16
	cf, _ := encrypt.GetDict("CF")
	for name, obj := range cf {
		entry, ok := obj.(core.Dict)
		if !ok {
			continue
		}
		method, _ := entry.GetName("CFM")
		var algo Algorithm
		switch method {
		case "None", "":
			algo = AlgorithmNone
		case "V2":
			algo = AlgorithmRC4
			if n := intValue(entry, "Length", 0); n > 0 {
				// /Length in a crypt filter is in bytes, though some writers use bits
				if n > 32 {
					n /= 8
				}
				h.keyLen = n
			}
		case "AESV2":
			algo = AlgorithmAES128
		case "AESV3":
			algo = AlgorithmAES256
		default:
			return core.Errorf(core.KindEncryptedPDF, "unsupported crypt filter method %q", method)
		}
		h.filters[name] = algo
	}
	var err error
	if h.stmAlgo, err = h.lookupFilter(nameValue(encrypt, "StmF")); err != nil {
		return err
	}
	h.strAlgo, err = h.lookupFilter(nameValue(encrypt, "StrF"))
	return err
}

func (h *Handler) lookupFilter(name string) (Algorithm, error) {
	if name == "" || name == "Identity" {
		return AlgorithmNone, nil
	}
	algo, ok := h.filters[name]
	if !ok {
		return AlgorithmNone, core.Errorf(core.KindEncryptedPDF, "crypt filter %q not defined in /CF", name)
	}
	return algo, nil
}

// Revision returns /R.
func (h *Handler) Revision() int { return h.r }

// Version returns /V.
func (h *Handler) Version() int { return h.v }

// Key returns the file key, or nil before authentication.
func (h *Handler) Key() []byte { return h.key }

// EncryptMetadata reports whether metadata streams are encrypted.
func (h *Handler) EncryptMetadata() bool { return h.encryptMetadata }

// StreamAlgorithm and StringAlgorithm report the default ciphers.
func (h *Handler) StreamAlgorithm() Algorithm { return h.stmAlgo }
func (h *Handler) StringAlgorithm() Algorithm { return h.strAlgo }

// Permissions returns the decoded /P flags. For revision 6 the copy in the
// encrypted /Perms entry is used when it validates.
func (h *Handler) Permissions() Permissions {
	p := h.p
	if h.r >= 6 && h.key != nil && len(h.perms) == 16 {
		if block, err := decryptECB(h.key, h.perms); err == nil && string(block[9:12]) == "adb" {
			p = int32(binary.LittleEndian.Uint32(block[:4]))
		}
	}
	return NewPermissions(p)
}

// Authenticate derives the file key from password, trying it first as the
// user password and then as the owner password. A password that validates
// as neither yields ENCRYPTED_PDF.
func (h *Handler) Authenticate(password string) error {
	var key []byte
	if h.r >= 5 {
		key = h.authenticateAES256(password)
	} else {
		pw := legacyPassword(password)
		if k := h.fileKey(pw); h.checkUser(k) {
			key = k
		} else if user := h.recoverUserPassword(pw); user != nil {
			if k := h.fileKey(user); h.checkUser(k) {
				key = k
			}
		}
	}
	if key == nil {
		return core.Errorf(core.KindEncryptedPDF, "password does not validate (R=%d)", h.r)
	}
	h.key = key
	return nil
}

// DecryptString decrypts a string belonging to the object ref.
func (h *Handler) DecryptString(ref core.IndirectRef, data []byte) ([]byte, error) {
	return h.decrypt(h.strAlgo, ref, data)
}

// DecryptStream decrypts the raw bytes of a stream belonging to ref.
// Metadata streams are left alone when /EncryptMetadata is false, and a
// leading /Crypt filter selects its named crypt filter.
func (h *Handler) DecryptStream(ref core.IndirectRef, dict core.Dict, data []byte) ([]byte, error) {
	if t, _ := dict.GetName("Type"); t == "Metadata" && !h.encryptMetadata {
		return data, nil
	}
	algo := h.stmAlgo
	if name, ok := cryptFilterName(dict); ok {
		var err error
		if algo, err = h.lookupFilter(name); err != nil {
			return nil, err
		}
	}
	return h.decrypt(algo, ref, data)
}

// EncryptString and EncryptStream are the inverse operations, used to
// build encrypted documents.
func (h *Handler) EncryptString(ref core.IndirectRef, data []byte) ([]byte, error) {
	return h.encrypt(h.strAlgo, ref, data)
}

func (h *Handler) EncryptStream(ref core.IndirectRef, data []byte) ([]byte, error) {
	return h.encrypt(h.stmAlgo, ref, data)
}

func (h *Handler) decrypt(algo Algorithm, ref core.IndirectRef, data []byte) ([]byte, error) {
	if h.key == nil {
		return nil, core.Errorf(core.KindEncryptedPDF, "not authenticated")
	}
	if algo == AlgorithmNone || len(data) == 0 {
		return data, nil
	}
	key := h.objectKey(algo, ref)
	if algo == AlgorithmRC4 {
		return rc4Crypt(key, data)
	}
	out, err := aesDecrypt(key, data)
	return out, errors.Wrapf(err, "object %s", ref)
}

func (h *Handler) encrypt(algo Algorithm, ref core.IndirectRef, data []byte) ([]byte, error) {
	if h.key == nil {
		return nil, core.Errorf(core.KindEncryptedPDF, "not authenticated")
	}
	if algo == AlgorithmNone {
		return data, nil
	}
	key := h.objectKey(algo, ref)
	if algo == AlgorithmRC4 {
		return rc4Crypt(key, data)
	}
	return aesEncrypt(key, data)
}

// cryptFilterName returns the /Name of a leading /Crypt filter.
func cryptFilterName(dict core.Dict) (string, bool) {
	var first core.Name
	switch f := dict.Get("Filter").(type) {
	case core.Name:
		first = f
	case core.Array:
		if len(f) > 0 {
			first, _ = f[0].(core.Name)
		}
	}
	if first != "Crypt" {
		return "", false
	}
	var parms core.Dict
	switch p := dict.Get("DecodeParms").(type) {
	case core.Dict:
		parms = p
	case core.Array:
		if len(p) > 0 {
			parms, _ = p[0].(core.Dict)
		}
	}
	name, ok := parms.GetName("Name")
	if !ok {
		return "Identity", true
	}
	return string(name), true
}

func intValue(d core.Dict, key string, def int) int {
	if v, ok := d.GetInt(key); ok {
		return int(v)
	}
	return def
}

func stringValue(d core.Dict, key string) []byte {
	if s, ok := d.GetString(key); ok {
		return []byte(s)
	}
	return nil
}

func nameValue(d core.Dict, key string) string {
	n, _ := d.GetName(key)
	return string(n)
}
