package registry

import (
	"fmt"
)

// The index messages use the protocol buffer wire format, decoded and
// encoded by hand with an explicit tag/field switch. Unknown fields
// inside a known message are skipped, never rejected, so new registry
// fields do not break older clients. Structurally invalid bytes (bad
// length prefixes, truncated varints, unsupported wire types) raise a
// *DecodeError. Encoding emits fields in ascending field order and is
// the exact byte-level inverse of decoding for every valid message.

// DecodeError reports structurally invalid index bytes.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("index decode error at byte %d: %s", e.Offset, e.Reason)
}

const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

type decoder struct {
	buf []byte
	pos int
	// base is the offset of buf within the outermost message, so nested
	// decoders report absolute error offsets.
	base int
}

func (d *decoder) errf(format string, args ...any) *DecodeError {
	return &DecodeError{Offset: d.base + d.pos, Reason: fmt.Sprintf(format, args...)}
}

func (d *decoder) done() bool { return d.pos >= len(d.buf) }

func (d *decoder) varint() (uint64, error) {
	var x uint64
	var shift uint
	for i := 0; ; i++ {
		if d.pos >= len(d.buf) {
			return 0, d.errf("truncated varint")
		}
		if i == 10 {
			return 0, d.errf("varint overflow")
		}
		b := d.buf[d.pos]
		d.pos++
		x |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return x, nil
		}
		shift += 7
	}
}

func (d *decoder) tag() (field int, wire int, err error) {
	v, err := d.varint()
	if err != nil {
		return 0, 0, err
	}
	field = int(v >> 3)
	wire = int(v & 7)
	if field == 0 {
		return 0, 0, d.errf("field number 0")
	}
	return field, wire, nil
}

func (d *decoder) bytes() ([]byte, error) {
	n, err := d.varint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(d.buf)-d.pos) {
		return nil, d.errf("length prefix %d exceeds remaining %d bytes", n, len(d.buf)-d.pos)
	}
	b := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return b, nil
}

func (d *decoder) nested() (*decoder, error) {
	start := d.pos
	b, err := d.bytes()
	if err != nil {
		return nil, err
	}
	return &decoder{buf: b, base: d.base + start + (d.pos - start - len(b))}, nil
}

// skip discards one unknown field. Only the four modern wire types are
// structurally valid; groups and anything else are rejected.
func (d *decoder) skip(wire int) error {
	switch wire {
	case wireVarint:
		_, err := d.varint()
		return err
	case wireBytes:
		_, err := d.bytes()
		return err
	case wireFixed64:
		if len(d.buf)-d.pos < 8 {
			return d.errf("truncated fixed64")
		}
		d.pos += 8
		return nil
	case wireFixed32:
		if len(d.buf)-d.pos < 4 {
			return d.errf("truncated fixed32")
		}
		d.pos += 4
		return nil
	default:
		return d.errf("unsupported wire type %d", wire)
	}
}

func (d *decoder) stringField(wire int) (string, error) {
	b, err := d.bytesField(wire)
	return string(b), err
}

func (d *decoder) bytesField(wire int) ([]byte, error) {
	if wire != wireBytes {
		return nil, d.errf("expected length-delimited field, got wire type %d", wire)
	}
	b, err := d.bytes()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// DecodeSigned decodes the outer envelope. The payload it returns is
// still untrusted; callers verify the signature before decoding further.
func DecodeSigned(b []byte) (*Signed, error) {
	d := &decoder{buf: b}
	s := &Signed{}
	for !d.done() {
		field, wire, err := d.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			if s.Payload, err = d.bytesField(wire); err != nil {
				return nil, err
			}
		case 2:
			if s.Signature, err = d.bytesField(wire); err != nil {
				return nil, err
			}
		default:
			if err := d.skip(wire); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// DecodeNames decodes a verified Names payload.
func DecodeNames(b []byte) (*Names, error) {
	d := &decoder{buf: b}
	n := &Names{}
	for !d.done() {
		field, wire, err := d.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			if wire != wireBytes {
				return nil, d.errf("Names.packages: wire type %d", wire)
			}
			nd, err := d.nested()
			if err != nil {
				return nil, err
			}
			name, err := decodeNameEntry(nd)
			if err != nil {
				return nil, err
			}
			n.Packages = append(n.Packages, name)
		case 2:
			if n.Repository, err = d.stringField(wire); err != nil {
				return nil, err
			}
		default:
			if err := d.skip(wire); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

func decodeNameEntry(d *decoder) (string, error) {
	var name string
	for !d.done() {
		field, wire, err := d.tag()
		if err != nil {
			return "", err
		}
		switch field {
		case 1:
			if name, err = d.stringField(wire); err != nil {
				return "", err
			}
		default:
			if err := d.skip(wire); err != nil {
				return "", err
			}
		}
	}
	return name, nil
}

// DecodeVersions decodes a verified Versions payload.
func DecodeVersions(b []byte) (*Versions, error) {
	d := &decoder{buf: b}
	v := &Versions{}
	for !d.done() {
		field, wire, err := d.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			if wire != wireBytes {
				return nil, d.errf("Versions.packages: wire type %d", wire)
			}
			nd, err := d.nested()
			if err != nil {
				return nil, err
			}
			pv, err := decodePackageVersions(nd)
			if err != nil {
				return nil, err
			}
			v.Packages = append(v.Packages, *pv)
		case 2:
			if v.Repository, err = d.stringField(wire); err != nil {
				return nil, err
			}
		default:
			if err := d.skip(wire); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

func decodePackageVersions(d *decoder) (*PackageVersions, error) {
	pv := &PackageVersions{}
	for !d.done() {
		field, wire, err := d.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			if pv.Name, err = d.stringField(wire); err != nil {
				return nil, err
			}
		case 2:
			s, err := d.stringField(wire)
			if err != nil {
				return nil, err
			}
			pv.Versions = append(pv.Versions, s)
		case 3:
			// Retired markers arrive as varints, packed or not.
			switch wire {
			case wireVarint:
				n, err := d.varint()
				if err != nil {
					return nil, err
				}
				pv.Retired = append(pv.Retired, int64(n))
			case wireBytes:
				nd, err := d.nested()
				if err != nil {
					return nil, err
				}
				for !nd.done() {
					n, err := nd.varint()
					if err != nil {
						return nil, err
					}
					pv.Retired = append(pv.Retired, int64(n))
				}
			default:
				return nil, d.errf("PackageVersions.retired: wire type %d", wire)
			}
		default:
			if err := d.skip(wire); err != nil {
				return nil, err
			}
		}
	}
	return pv, nil
}

// DecodePackage decodes a verified Package payload.
func DecodePackage(b []byte) (*Package, error) {
	d := &decoder{buf: b}
	p := &Package{}
	for !d.done() {
		field, wire, err := d.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			if wire != wireBytes {
				return nil, d.errf("Package.releases: wire type %d", wire)
			}
			nd, err := d.nested()
			if err != nil {
				return nil, err
			}
			rel, err := decodeRelease(nd)
			if err != nil {
				return nil, err
			}
			p.Releases = append(p.Releases, *rel)
		case 2:
			if p.Name, err = d.stringField(wire); err != nil {
				return nil, err
			}
		case 3:
			if p.Repository, err = d.stringField(wire); err != nil {
				return nil, err
			}
		default:
			if err := d.skip(wire); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

func decodeRelease(d *decoder) (*Release, error) {
	r := &Release{}
	for !d.done() {
		field, wire, err := d.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			if r.Version, err = d.stringField(wire); err != nil {
				return nil, err
			}
		case 2:
			if r.InnerChecksum, err = d.bytesField(wire); err != nil {
				return nil, err
			}
		case 3:
			if wire != wireBytes {
				return nil, d.errf("Release.dependencies: wire type %d", wire)
			}
			nd, err := d.nested()
			if err != nil {
				return nil, err
			}
			dep, err := decodeDependency(nd)
			if err != nil {
				return nil, err
			}
			r.Dependencies = append(r.Dependencies, *dep)
		case 4:
			if wire != wireBytes {
				return nil, d.errf("Release.retired: wire type %d", wire)
			}
			nd, err := d.nested()
			if err != nil {
				return nil, err
			}
			st, err := decodeRetirementStatus(nd)
			if err != nil {
				return nil, err
			}
			r.Retired = st
		case 5:
			if r.OuterChecksum, err = d.bytesField(wire); err != nil {
				return nil, err
			}
		default:
			if err := d.skip(wire); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func decodeDependency(d *decoder) (*Dependency, error) {
	dep := &Dependency{}
	for !d.done() {
		field, wire, err := d.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			if dep.Package, err = d.stringField(wire); err != nil {
				return nil, err
			}
		case 2:
			if dep.Requirement, err = d.stringField(wire); err != nil {
				return nil, err
			}
		case 3:
			if wire != wireVarint {
				return nil, d.errf("Dependency.optional: wire type %d", wire)
			}
			n, err := d.varint()
			if err != nil {
				return nil, err
			}
			dep.Optional = n != 0
		case 4:
			if dep.App, err = d.stringField(wire); err != nil {
				return nil, err
			}
		case 5:
			if dep.Repository, err = d.stringField(wire); err != nil {
				return nil, err
			}
		default:
			if err := d.skip(wire); err != nil {
				return nil, err
			}
		}
	}
	return dep, nil
}

func decodeRetirementStatus(d *decoder) (*RetirementStatus, error) {
	st := &RetirementStatus{}
	for !d.done() {
		field, wire, err := d.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			if wire != wireVarint {
				return nil, d.errf("RetirementStatus.reason: wire type %d", wire)
			}
			n, err := d.varint()
			if err != nil {
				return nil, err
			}
			if n > uint64(RetiredRenamed) {
				return nil, d.errf("RetirementStatus.reason: out of range %d", n)
			}
			st.Reason = RetirementReason(n)
		case 2:
			if st.Message, err = d.stringField(wire); err != nil {
				return nil, err
			}
		default:
			if err := d.skip(wire); err != nil {
				return nil, err
			}
		}
	}
	return st, nil
}

// --- encoding ---

type encoder struct{ buf []byte }

func (e *encoder) varint(x uint64) {
	for x >= 0x80 {
		e.buf = append(e.buf, byte(x)|0x80)
		x >>= 7
	}
	e.buf = append(e.buf, byte(x))
}

func (e *encoder) tag(field, wire int) {
	e.varint(uint64(field)<<3 | uint64(wire))
}

func (e *encoder) bytesFld(field int, b []byte) {
	if len(b) == 0 {
		return
	}
	e.tag(field, wireBytes)
	e.varint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *encoder) stringFld(field int, s string) {
	e.bytesFld(field, []byte(s))
}

func (e *encoder) message(field int, body []byte) {
	e.tag(field, wireBytes)
	e.varint(uint64(len(body)))
	e.buf = append(e.buf, body...)
}

// EncodeSigned encodes the outer envelope.
func EncodeSigned(s *Signed) []byte {
	e := &encoder{}
	e.bytesFld(1, s.Payload)
	e.bytesFld(2, s.Signature)
	return e.buf
}

// EncodeNames encodes a Names payload.
func EncodeNames(n *Names) []byte {
	e := &encoder{}
	for _, name := range n.Packages {
		entry := &encoder{}
		entry.stringFld(1, name)
		e.message(1, entry.buf)
	}
	e.stringFld(2, n.Repository)
	return e.buf
}

// EncodeVersions encodes a Versions payload.
func EncodeVersions(v *Versions) []byte {
	e := &encoder{}
	for _, pv := range v.Packages {
		entry := &encoder{}
		entry.stringFld(1, pv.Name)
		for _, s := range pv.Versions {
			entry.stringFld(2, s)
		}
		for _, idx := range pv.Retired {
			entry.tag(3, wireVarint)
			entry.varint(uint64(idx))
		}
		e.message(1, entry.buf)
	}
	e.stringFld(2, v.Repository)
	return e.buf
}

// EncodePackage encodes a Package payload.
func EncodePackage(p *Package) []byte {
	e := &encoder{}
	for i := range p.Releases {
		e.message(1, encodeRelease(&p.Releases[i]))
	}
	e.stringFld(2, p.Name)
	e.stringFld(3, p.Repository)
	return e.buf
}

func encodeRelease(r *Release) []byte {
	e := &encoder{}
	e.stringFld(1, r.Version)
	e.bytesFld(2, r.InnerChecksum)
	for i := range r.Dependencies {
		e.message(3, encodeDependency(&r.Dependencies[i]))
	}
	if r.Retired != nil {
		e.message(4, encodeRetirementStatus(r.Retired))
	}
	e.bytesFld(5, r.OuterChecksum)
	return e.buf
}

func encodeDependency(d *Dependency) []byte {
	e := &encoder{}
	e.stringFld(1, d.Package)
	e.stringFld(2, d.Requirement)
	if d.Optional {
		e.tag(3, wireVarint)
		e.varint(1)
	}
	e.stringFld(4, d.App)
	e.stringFld(5, d.Repository)
	return e.buf
}

func encodeRetirementStatus(st *RetirementStatus) []byte {
	e := &encoder{}
	// Reason is written even when zero so the status keeps explicit
	// presence on the wire.
	e.tag(1, wireVarint)
	e.varint(uint64(st.Reason))
	e.stringFld(2, st.Message)
	return e.buf
}
