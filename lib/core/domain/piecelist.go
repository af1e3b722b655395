package domain

import "errors"

var ErrOutOfBound = errors.New("out of bound")

// PieceList is the wire bitfield: bit 7 of byte 0 is piece 0.
type PieceList []byte

func NewPieceList(piecesCount int) PieceList {
	return make(PieceList, (piecesCount+7)/8)
}

func (p PieceList) ContainPiece(pieceNo int) bool {
	if pieceNo < 0 || pieceNo/8 >= len(p) {
		return false
	}
	return p[pieceNo/8]>>(7-pieceNo%8)&1 == 1
}

func (p PieceList) SetPiece(pieceNo int) error {
	if pieceNo < 0 || pieceNo/8 >= len(p) {
		return ErrOutOfBound
	}
	p[pieceNo/8] |= 1 << (7 - pieceNo%8)
	return nil
}
