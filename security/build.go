package security

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfcore/core"
)

// Config describes the standard security handler of a document being
// written. Only what is needed to produce test documents is supported.
type Config struct {
	Revision        int // 2, 3, 4 or 6
	KeyBits         int // RC4 key length for R3, 40-128; ignored otherwise
	AES             bool
	UserPassword    string
	OwnerPassword   string // defaults to UserPassword
	Permissions     int32
	ID              []byte // first element of the trailer /ID
	EncryptMetadata bool
}

// NewEncryption builds an /Encrypt dictionary for cfg and returns it with
// an authenticated handler that can encrypt the document's strings and
// streams.
func NewEncryption(cfg Config) (core.Dict, *Handler, error) {
	owner := cfg.OwnerPassword
	if owner == "" {
		owner = cfg.UserPassword
	}
	h := &Handler{
		r:               cfg.Revision,
		p:               cfg.Permissions,
		id:              cfg.ID,
		encryptMetadata: cfg.EncryptMetadata,
		filters:         map[string]Algorithm{},
	}
	dict := core.Dict{
		"Filter": core.Name("Standard"),
		"R":      core.Int(cfg.Revision),
		"P":      core.Int(cfg.Permissions),
	}

	switch cfg.Revision {
	case 2:
		h.v, h.keyLen = 1, 5
		h.stmAlgo, h.strAlgo = AlgorithmRC4, AlgorithmRC4
	case 3:
		bits := cfg.KeyBits
		if bits == 0 {
			bits = 128
		}
		if bits < 40 || bits > 128 || bits%8 != 0 {
			return nil, nil, errors.Errorf("invalid RC4 key length %d bits", bits)
		}
		h.v, h.keyLen = 2, bits/8
		h.stmAlgo, h.strAlgo = AlgorithmRC4, AlgorithmRC4
		dict["Length"] = core.Int(bits)
	case 4:
		h.v, h.keyLen = 4, 16
		algo, method := AlgorithmRC4, "V2"
		if cfg.AES {
			algo, method = AlgorithmAES128, "AESV2"
		}
		h.stmAlgo, h.strAlgo = algo, algo
		h.filters["StdCF"] = algo
		dict["Length"] = core.Int(128)
		dict["CF"] = core.Dict{"StdCF": core.Dict{
			"CFM":       core.Name(method),
			"Length":    core.Int(16),
			"AuthEvent": core.Name("DocOpen"),
		}}
		dict["StmF"] = core.Name("StdCF")
		dict["StrF"] = core.Name("StdCF")
	case 6:
		h.v, h.keyLen = 5, 32
		h.stmAlgo, h.strAlgo = AlgorithmAES256, AlgorithmAES256
		h.filters["StdCF"] = AlgorithmAES256
		dict["Length"] = core.Int(256)
		dict["CF"] = core.Dict{"StdCF": core.Dict{
			"CFM":       core.Name("AESV3"),
			"Length":    core.Int(32),
			"AuthEvent": core.Name("DocOpen"),
		}}
		dict["StmF"] = core.Name("StdCF")
		dict["StrF"] = core.Name("StdCF")
	default:
		return nil, nil, errors.Errorf("cannot build revision %d", cfg.Revision)
	}
	dict["V"] = core.Int(h.v)
	if !cfg.EncryptMetadata {
		dict["EncryptMetadata"] = core.Bool(false)
	}

	if cfg.Revision == 6 {
		if err := h.buildAES256(cfg.UserPassword, owner); err != nil {
			return nil, nil, err
		}
		dict["OE"] = core.String(h.oe)
		dict["UE"] = core.String(h.ue)
		dict["Perms"] = core.String(h.perms)
	} else {
		h.o = h.ownerEntry(legacyPassword(owner), legacyPassword(cfg.UserPassword))
		h.key = h.fileKey(legacyPassword(cfg.UserPassword))
		h.u = h.userEntry(h.key)
	}
	dict["O"] = core.String(h.o)
	dict["U"] = core.String(h.u)
	return dict, h, nil
}

func (h *Handler) buildAES256(user, owner string) error {
	salts := make([]byte, 32)
	if _, err := rand.Read(salts); err != nil {
		return errors.Wrap(err, "salt")
	}
	h.key = make([]byte, 32)
	if _, err := rand.Read(h.key); err != nil {
		return errors.Wrap(err, "key")
	}

	upw, opw := aes256Password(user), aes256Password(owner)
	uvs, uks, ovs, oks := salts[0:8], salts[8:16], salts[16:24], salts[24:32]

	h.u = append(append(h.hash(upw, uvs, nil), uvs...), uks...)
	ue, err := cbcNoPadding(h.hash(upw, uks, nil), make([]byte, 16), h.key, true)
	if err != nil {
		return err
	}
	h.ue = ue

	h.o = append(append(h.hash(opw, ovs, h.u), ovs...), oks...)
	oe, err := cbcNoPadding(h.hash(opw, oks, h.u), make([]byte, 16), h.key, true)
	if err != nil {
		return err
	}
	h.oe = oe

	block := make([]byte, 16)
	binary.LittleEndian.PutUint32(block, uint32(h.p))
	copy(block[4:8], []byte{0xFF, 0xFF, 0xFF, 0xFF})
	block[8] = 'F'
	if h.encryptMetadata {
		block[8] = 'T'
	}
	copy(block[9:12], "adb")
	perms, err := encryptECB(h.key, block)
	if err != nil {
		return err
	}
	h.perms = perms
	return nil
}
