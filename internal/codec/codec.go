// Package codec implements the fixed binary encoding of a game snapshot
// used by the persistence layer, plus the compact tile-list encodings shared
// with network payloads. The layout is versionless; decode(encode(g))
// round-trips field-for-field for every reachable aggregate.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"qwirkle/internal/domain"
)

// ErrCorrupt reports a document that cannot be decoded at all.
var ErrCorrupt = errors.New("codec: corrupt game document")

// ErrIntegrity reports a document that decodes into an aggregate violating
// the tile-conservation invariant. Callers must treat this as fatal, not
// patch around it.
var ErrIntegrity = errors.New("codec: game document fails tile conservation")

// ErrCoordinateRange reports a placement outside the signed 8-bit coordinate
// range the encoding supports.
var ErrCoordinateRange = errors.New("codec: tile coordinate outside [-128,127]")

// Colours and shapes map to dense codes in [0,6) through these fixed tables.
// The table order must never change once documents exist.
var (
	colourByCode = domain.Colours
	shapeByCode  = domain.Shapes
	codeByColour = map[domain.Colour]byte{}
	codeByShape  = map[domain.Shape]byte{}
)

func init() {
	for i, c := range colourByCode {
		codeByColour[c] = byte(i)
	}
	for i, s := range shapeByCode {
		codeByShape[s] = byte(i)
	}
}

const (
	histogramSize = 36
	absent        = int64(-1)
)

// AppendTiles appends the (colour, shape) byte-pair encoding of the tiles.
func AppendTiles(buf []byte, tiles []domain.Tile) []byte {
	for _, t := range tiles {
		buf = append(buf, codeByColour[t.Colour], codeByShape[t.Shape])
	}
	return buf
}

// ReadTiles decodes n tiles from r.
func ReadTiles(r *bytes.Reader, n int) ([]domain.Tile, error) {
	tiles := make([]domain.Tile, 0, n)
	for i := 0; i < n; i++ {
		colour, err := readCode(r, len(colourByCode))
		if err != nil {
			return nil, err
		}
		shape, err := readCode(r, len(shapeByCode))
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, domain.Tile{Colour: colourByCode[colour], Shape: shapeByCode[shape]})
	}
	return tiles, nil
}

// AppendPositionedTiles appends the 4-byte (colour, shape, x, y) encoding.
// Coordinates are signed bytes; a placement outside that range cannot be
// encoded.
func AppendPositionedTiles(buf []byte, tiles []domain.PositionedTile) ([]byte, error) {
	for _, pt := range tiles {
		if pt.Position.X < math.MinInt8 || pt.Position.X > math.MaxInt8 ||
			pt.Position.Y < math.MinInt8 || pt.Position.Y > math.MaxInt8 {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrCoordinateRange, pt.Position.X, pt.Position.Y)
		}
		buf = append(buf,
			codeByColour[pt.Tile.Colour], codeByShape[pt.Tile.Shape],
			byte(int8(pt.Position.X)), byte(int8(pt.Position.Y)))
	}
	return buf, nil
}

// ReadPositionedTiles decodes n positioned tiles from r.
func ReadPositionedTiles(r *bytes.Reader, n int) ([]domain.PositionedTile, error) {
	tiles := make([]domain.PositionedTile, 0, n)
	for i := 0; i < n; i++ {
		plain, err := ReadTiles(r, 1)
		if err != nil {
			return nil, err
		}
		x, err := r.ReadByte()
		if err != nil {
			return nil, ErrCorrupt
		}
		y, err := r.ReadByte()
		if err != nil {
			return nil, ErrCorrupt
		}
		tiles = append(tiles, domain.PositionedTile{
			Tile:     plain[0],
			Position: domain.Position{X: int(int8(x)), Y: int(int8(y))},
		})
	}
	return tiles, nil
}

// appendBag appends the 36-count histogram, one byte per colour/shape pair
// in table order.
func appendBag(buf []byte, bag domain.TileBag) []byte {
	for _, colour := range colourByCode {
		for _, shape := range shapeByCode {
			buf = append(buf, byte(bag.Count(domain.Tile{Colour: colour, Shape: shape})))
		}
	}
	return buf
}

func readBag(r *bytes.Reader) (domain.TileBag, error) {
	var tiles []domain.Tile
	for _, colour := range colourByCode {
		for _, shape := range shapeByCode {
			count, err := r.ReadByte()
			if err != nil {
				return domain.TileBag{}, ErrCorrupt
			}
			for i := byte(0); i < count; i++ {
				tiles = append(tiles, domain.Tile{Colour: colour, Shape: shape})
			}
		}
	}
	return domain.BagFromTiles(tiles), nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil || n > uint64(r.Len()) {
		return "", ErrCorrupt
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", ErrCorrupt
	}
	return string(b), nil
}

func appendInt64(buf []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(v))
}

func readInt64(r *bytes.Reader) (int64, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, ErrCorrupt
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// appendOptional writes v with -1 standing in for "unset" (v == 0).
func appendOptional(buf []byte, v int64) []byte {
	if v == 0 {
		return appendInt64(buf, absent)
	}
	return appendInt64(buf, v)
}

func readOptional(r *bytes.Reader) (int64, error) {
	v, err := readInt64(r)
	if err != nil {
		return 0, err
	}
	if v == absent {
		return 0, nil
	}
	return v, nil
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil || b > 1 {
		return false, ErrCorrupt
	}
	return b == 1, nil
}

func readCode(r *bytes.Reader, limit int) (byte, error) {
	b, err := r.ReadByte()
	if err != nil || int(b) >= limit {
		return 0, ErrCorrupt
	}
	return b, nil
}

var (
	statusByCode = [2]domain.OnlineStatus{domain.Offline, domain.Online}
	typeByCode   = [2]domain.UserType{domain.Player, domain.Spectator}
)

func statusCode(s domain.OnlineStatus) byte {
	if s == domain.Online {
		return 1
	}
	return 0
}

func typeCode(t domain.UserType) byte {
	if t == domain.Spectator {
		return 1
	}
	return 0
}

// EncodeGame serializes the full aggregate. The first byte is the started
// flag so HasGameStarted checks never decode the rest of the document. Maps
// are written in sorted-userId order, making the encoding deterministic.
func EncodeGame(g domain.Game) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = appendBool(buf, g.Started)
	buf = appendBool(buf, g.Over)

	userIDs := make([]string, 0, len(g.Users))
	for id := range g.Users {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	buf = binary.AppendUvarint(buf, uint64(len(userIDs)))
	for _, id := range userIDs {
		u := g.Users[id]
		buf = appendString(buf, u.ID)
		buf = appendString(buf, u.Name)
		buf = append(buf, statusCode(u.Status), typeCode(u.Type))
		buf = appendInt64(buf, int64(u.Score))
	}

	handIDs := make([]string, 0, len(g.Hands))
	for id := range g.Hands {
		handIDs = append(handIDs, id)
	}
	sort.Strings(handIDs)
	buf = binary.AppendUvarint(buf, uint64(len(handIDs)))
	for _, id := range handIDs {
		hand := g.Hands[id]
		buf = appendString(buf, id)
		buf = binary.AppendUvarint(buf, uint64(len(hand)))
		buf = AppendTiles(buf, hand)
	}

	var err error
	buf = binary.AppendUvarint(buf, uint64(len(g.Tiles)))
	if buf, err = AppendPositionedTiles(buf, g.Tiles); err != nil {
		return nil, err
	}
	buf = binary.AppendUvarint(buf, uint64(len(g.LastPlaced)))
	if buf, err = AppendPositionedTiles(buf, g.LastPlaced); err != nil {
		return nil, err
	}

	buf = appendBool(buf, g.UserInControl != "")
	if g.UserInControl != "" {
		buf = appendString(buf, g.UserInControl)
	}
	buf = appendOptional(buf, g.TurnStartTime)
	buf = appendOptional(buf, g.TurnTimer)
	buf = appendBag(buf, g.Bag)
	buf = appendInt64(buf, g.LastWrite)
	return buf, nil
}

// DecodeGame rebuilds the aggregate and verifies the tile-conservation
// invariant for started games.
func DecodeGame(data []byte) (domain.Game, error) {
	r := bytes.NewReader(data)
	g := domain.NewGame()

	var err error
	if g.Started, err = readBool(r); err != nil {
		return domain.Game{}, err
	}
	if g.Over, err = readBool(r); err != nil {
		return domain.Game{}, err
	}

	userCount, err := readCount(r)
	if err != nil {
		return domain.Game{}, err
	}
	for i := 0; i < userCount; i++ {
		var u domain.UserWithStatus
		if u.ID, err = readString(r); err != nil {
			return domain.Game{}, err
		}
		if u.Name, err = readString(r); err != nil {
			return domain.Game{}, err
		}
		status, err := readCode(r, len(statusByCode))
		if err != nil {
			return domain.Game{}, err
		}
		u.Status = statusByCode[status]
		typ, err := readCode(r, len(typeByCode))
		if err != nil {
			return domain.Game{}, err
		}
		u.Type = typeByCode[typ]
		score, err := readInt64(r)
		if err != nil {
			return domain.Game{}, err
		}
		u.Score = int(score)
		g.Users[u.ID] = u
	}

	handCount, err := readCount(r)
	if err != nil {
		return domain.Game{}, err
	}
	for i := 0; i < handCount; i++ {
		id, err := readString(r)
		if err != nil {
			return domain.Game{}, err
		}
		n, err := readCount(r)
		if err != nil {
			return domain.Game{}, err
		}
		hand, err := ReadTiles(r, n)
		if err != nil {
			return domain.Game{}, err
		}
		g.Hands[id] = hand
	}

	tileCount, err := readCount(r)
	if err != nil {
		return domain.Game{}, err
	}
	if g.Tiles, err = ReadPositionedTiles(r, tileCount); err != nil {
		return domain.Game{}, err
	}
	lastCount, err := readCount(r)
	if err != nil {
		return domain.Game{}, err
	}
	if g.LastPlaced, err = ReadPositionedTiles(r, lastCount); err != nil {
		return domain.Game{}, err
	}

	hasControl, err := readBool(r)
	if err != nil {
		return domain.Game{}, err
	}
	if hasControl {
		if g.UserInControl, err = readString(r); err != nil {
			return domain.Game{}, err
		}
	}
	if g.TurnStartTime, err = readOptional(r); err != nil {
		return domain.Game{}, err
	}
	if g.TurnTimer, err = readOptional(r); err != nil {
		return domain.Game{}, err
	}
	if g.Bag, err = readBag(r); err != nil {
		return domain.Game{}, err
	}
	if g.LastWrite, err = readInt64(r); err != nil {
		return domain.Game{}, err
	}
	if r.Len() != 0 {
		return domain.Game{}, ErrCorrupt
	}

	if g.Started && g.TileCount() != domain.TotalTiles {
		return domain.Game{}, fmt.Errorf("%w: counted %d of %d tiles", ErrIntegrity, g.TileCount(), domain.TotalTiles)
	}
	return g, nil
}

// HasStarted inspects only the leading flag byte of an encoded document.
func HasStarted(data []byte) (bool, error) {
	if len(data) == 0 || data[0] > 1 {
		return false, ErrCorrupt
	}
	return data[0] == 1, nil
}

func readCount(r *bytes.Reader) (int, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil || n > uint64(r.Len()) {
		return 0, ErrCorrupt
	}
	return int(n), nil
}
