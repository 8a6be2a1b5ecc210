package wire

import "github.com/cohesix/ninedoor/internal/errcode"

// Encode* functions build just the body (header added by EncodeFrame).

func EncodeTversion(m TversionMsg) []byte {
	e := &encoder{}
	e.u32(m.Msize)
	e.str(m.Version)
	return e.buf
}

func EncodeRversion(m RversionMsg) []byte {
	e := &encoder{}
	e.u32(m.Msize)
	e.str(m.Version)
	return e.buf
}

func EncodeTattach(m TattachMsg) []byte {
	e := &encoder{}
	e.u32(m.Fid)
	e.str(m.Aname)
	e.bytes(m.Ticket)
	return e.buf
}

func EncodeRattach(m RattachMsg) []byte {
	e := &encoder{}
	e.qid(m.Qid)
	return e.buf
}

func EncodeTwalk(m TwalkMsg) []byte {
	e := &encoder{}
	e.u32(m.Fid)
	e.u32(m.NewFid)
	e.strs(m.Names)
	return e.buf
}

func EncodeRwalk(m RwalkMsg) []byte {
	e := &encoder{}
	e.qids(m.Qids)
	return e.buf
}

func EncodeTopen(m TopenMsg) []byte {
	e := &encoder{}
	e.u32(m.Fid)
	e.u8(uint8(m.Mode))
	return e.buf
}

func EncodeRopen(m RopenMsg) []byte {
	e := &encoder{}
	e.qid(m.Qid)
	e.u32(m.IOUnit)
	return e.buf
}

func EncodeTread(m TreadMsg) []byte {
	e := &encoder{}
	e.u32(m.Fid)
	e.u64(m.Offset)
	e.u32(m.Count)
	return e.buf
}

func EncodeRread(m RreadMsg) []byte {
	e := &encoder{}
	e.bytes(m.Data)
	return e.buf
}

func EncodeTwrite(m TwriteMsg) []byte {
	e := &encoder{}
	e.u32(m.Fid)
	e.u64(m.Offset)
	e.bytes(m.Data)
	return e.buf
}

func EncodeRwrite(m RwriteMsg) []byte {
	e := &encoder{}
	e.u32(m.Count)
	return e.buf
}

func EncodeTclunk(m TclunkMsg) []byte {
	e := &encoder{}
	e.u32(m.Fid)
	return e.buf
}

func EncodeRclunk(RclunkMsg) []byte { return nil }

func EncodeTremove(m TremoveMsg) []byte {
	e := &encoder{}
	e.u32(m.Fid)
	return e.buf
}

func EncodeTstat(m TstatMsg) []byte {
	e := &encoder{}
	e.u32(m.Fid)
	return e.buf
}

func EncodeRstat(m RstatMsg) []byte {
	e := &encoder{}
	e.bytes(m.Data)
	return e.buf
}

func EncodeRerror(m RerrorMsg) []byte {
	e := &encoder{}
	e.str(m.Code)
	return e.buf
}

// Decode* functions parse a message body; the caller already knows
// mtype from the frame header.

func DecodeTversion(body []byte) (TversionMsg, error) {
	d := &decoder{data: body}
	msize, err := d.u32()
	if err != nil {
		return TversionMsg{}, err
	}
	ver, err := d.str()
	if err != nil {
		return TversionMsg{}, err
	}
	if !d.done() {
		return TversionMsg{}, errcode.Invalid
	}
	return TversionMsg{Msize: msize, Version: ver}, nil
}

func DecodeTattach(body []byte) (TattachMsg, error) {
	d := &decoder{data: body}
	fid, err := d.u32()
	if err != nil {
		return TattachMsg{}, err
	}
	aname, err := d.str()
	if err != nil {
		return TattachMsg{}, err
	}
	ticket, err := d.bytes()
	if err != nil {
		return TattachMsg{}, err
	}
	if !d.done() {
		return TattachMsg{}, errcode.Invalid
	}
	return TattachMsg{Fid: fid, Aname: aname, Ticket: ticket}, nil
}

func DecodeTwalk(body []byte) (TwalkMsg, error) {
	d := &decoder{data: body}
	fid, err := d.u32()
	if err != nil {
		return TwalkMsg{}, err
	}
	newFid, err := d.u32()
	if err != nil {
		return TwalkMsg{}, err
	}
	names, err := d.strs()
	if err != nil {
		return TwalkMsg{}, err
	}
	if !d.done() {
		return TwalkMsg{}, errcode.Invalid
	}
	if err := ValidateWalkNames(names); err != nil {
		return TwalkMsg{}, err
	}
	return TwalkMsg{Fid: fid, NewFid: newFid, Names: names}, nil
}

func DecodeTopen(body []byte) (TopenMsg, error) {
	d := &decoder{data: body}
	fid, err := d.u32()
	if err != nil {
		return TopenMsg{}, err
	}
	mode, err := d.u8()
	if err != nil {
		return TopenMsg{}, err
	}
	if !d.done() {
		return TopenMsg{}, errcode.Invalid
	}
	return TopenMsg{Fid: fid, Mode: OpenMode(mode)}, nil
}

func DecodeTread(body []byte) (TreadMsg, error) {
	d := &decoder{data: body}
	fid, err := d.u32()
	if err != nil {
		return TreadMsg{}, err
	}
	off, err := d.u64()
	if err != nil {
		return TreadMsg{}, err
	}
	count, err := d.u32()
	if err != nil {
		return TreadMsg{}, err
	}
	if !d.done() {
		return TreadMsg{}, errcode.Invalid
	}
	return TreadMsg{Fid: fid, Offset: off, Count: count}, nil
}

func DecodeTwrite(body []byte) (TwriteMsg, error) {
	d := &decoder{data: body}
	fid, err := d.u32()
	if err != nil {
		return TwriteMsg{}, err
	}
	off, err := d.u64()
	if err != nil {
		return TwriteMsg{}, err
	}
	data, err := d.bytes()
	if err != nil {
		return TwriteMsg{}, err
	}
	if !d.done() {
		return TwriteMsg{}, errcode.Invalid
	}
	return TwriteMsg{Fid: fid, Offset: off, Data: data}, nil
}

func DecodeTclunk(body []byte) (TclunkMsg, error) {
	d := &decoder{data: body}
	fid, err := d.u32()
	if err != nil {
		return TclunkMsg{}, err
	}
	if !d.done() {
		return TclunkMsg{}, errcode.Invalid
	}
	return TclunkMsg{Fid: fid}, nil
}

func DecodeTremove(body []byte) (TremoveMsg, error) {
	d := &decoder{data: body}
	fid, err := d.u32()
	if err != nil {
		return TremoveMsg{}, err
	}
	if !d.done() {
		return TremoveMsg{}, errcode.Invalid
	}
	return TremoveMsg{Fid: fid}, nil
}

func DecodeTstat(body []byte) (TstatMsg, error) {
	d := &decoder{data: body}
	fid, err := d.u32()
	if err != nil {
		return TstatMsg{}, err
	}
	if !d.done() {
		return TstatMsg{}, errcode.Invalid
	}
	return TstatMsg{Fid: fid}, nil
}

// R-side decoders: used by a client (cmd/ninedoorctl) reading replies,
// and by tests exercising the codec round trip from the server side.

func DecodeRversion(body []byte) (RversionMsg, error) {
	d := &decoder{data: body}
	msize, err := d.u32()
	if err != nil {
		return RversionMsg{}, err
	}
	ver, err := d.str()
	if err != nil {
		return RversionMsg{}, err
	}
	if !d.done() {
		return RversionMsg{}, errcode.Invalid
	}
	return RversionMsg{Msize: msize, Version: ver}, nil
}

func DecodeRattach(body []byte) (RattachMsg, error) {
	d := &decoder{data: body}
	qid, err := d.qid()
	if err != nil {
		return RattachMsg{}, err
	}
	if !d.done() {
		return RattachMsg{}, errcode.Invalid
	}
	return RattachMsg{Qid: qid}, nil
}

func DecodeRwalk(body []byte) (RwalkMsg, error) {
	d := &decoder{data: body}
	qids, err := d.qids()
	if err != nil {
		return RwalkMsg{}, err
	}
	if !d.done() {
		return RwalkMsg{}, errcode.Invalid
	}
	return RwalkMsg{Qids: qids}, nil
}

func DecodeRopen(body []byte) (RopenMsg, error) {
	d := &decoder{data: body}
	qid, err := d.qid()
	if err != nil {
		return RopenMsg{}, err
	}
	iounit, err := d.u32()
	if err != nil {
		return RopenMsg{}, err
	}
	if !d.done() {
		return RopenMsg{}, errcode.Invalid
	}
	return RopenMsg{Qid: qid, IOUnit: iounit}, nil
}

func DecodeRread(body []byte) (RreadMsg, error) {
	d := &decoder{data: body}
	data, err := d.bytes()
	if err != nil {
		return RreadMsg{}, err
	}
	if !d.done() {
		return RreadMsg{}, errcode.Invalid
	}
	return RreadMsg{Data: data}, nil
}

func DecodeRwrite(body []byte) (RwriteMsg, error) {
	d := &decoder{data: body}
	count, err := d.u32()
	if err != nil {
		return RwriteMsg{}, err
	}
	if !d.done() {
		return RwriteMsg{}, errcode.Invalid
	}
	return RwriteMsg{Count: count}, nil
}

func DecodeRclunk(body []byte) (RclunkMsg, error) {
	if len(body) != 0 {
		return RclunkMsg{}, errcode.Invalid
	}
	return RclunkMsg{}, nil
}

func DecodeRstat(body []byte) (RstatMsg, error) {
	d := &decoder{data: body}
	data, err := d.bytes()
	if err != nil {
		return RstatMsg{}, err
	}
	if !d.done() {
		return RstatMsg{}, errcode.Invalid
	}
	return RstatMsg{Data: data}, nil
}

func DecodeRerror(body []byte) (RerrorMsg, error) {
	d := &decoder{data: body}
	code, err := d.str()
	if err != nil {
		return RerrorMsg{}, err
	}
	if !d.done() {
		return RerrorMsg{}, errcode.Invalid
	}
	return RerrorMsg{Code: code}, nil
}
