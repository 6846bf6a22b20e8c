package dxf

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
)

// Version is the $ACADVER written to every document (AutoCAD 2000).
const Version = "AC1015"

// Fixed handles of the table, block and object records every document
// carries. Entity handles start at firstEntityHandle.
const (
	handleVPortTable       = 0x1
	handleLTypeTable       = 0x2
	handleLayerTable       = 0x3
	handleStyleTable       = 0x4
	handleViewTable        = 0x5
	handleUCSTable         = 0x6
	handleAppIDTable       = 0x7
	handleDimStyleTable    = 0x8
	handleBlockRecordTable = 0x9
	handleRootDictionary   = 0xA
	handleGroupDictionary  = 0xB
	handleLTypeByBlock     = 0x10
	handleLTypeByLayer     = 0x11
	handleLTypeContinuous  = 0x12
	handleLayerZero        = 0x13
	handleLayerCustom      = 0x14
	handleStyleStandard    = 0x15
	handleAppIDACAD        = 0x16
	handleModelSpaceRecord = 0x17
	handlePaperSpaceRecord = 0x18
	handleModelSpaceBlock  = 0x19
	handleModelSpaceEnd    = 0x1A
	handlePaperSpaceBlock  = 0x1B
	handlePaperSpaceEnd    = 0x1C
	handleVPortActive      = 0x1D
	handleDimStyleStandard = 0x1E

	firstEntityHandle = 0x100
)

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo serializes the document as DXF text.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	gw := &groupWriter{w: bufio.NewWriter(cw)}

	d.writeHeader(gw)
	gw.section("CLASSES")
	gw.endSection()
	d.writeTables(gw)
	d.writeBlocks(gw)
	d.writeEntities(gw)
	d.writeObjects(gw)
	gw.str(0, "EOF")

	if gw.err == nil {
		gw.err = gw.w.Flush()
	}
	return cw.n, gw.err
}

func (d *Document) handleSeed() int {
	return firstEntityHandle + len(d.entities)
}

func (d *Document) writeHeader(gw *groupWriter) {
	ext := d.Extents()
	if ext.Empty() {
		ext = Extents{}
	}

	gw.section("HEADER")
	gw.variable("$ACADVER")
	gw.str(1, Version)
	gw.variable("$DWGCODEPAGE")
	gw.str(3, "ANSI_1252")
	gw.variable("$INSBASE")
	gw.point(10, 0, 0)
	gw.variable("$EXTMIN")
	gw.point(10, ext.Min.X, ext.Min.Y)
	gw.variable("$EXTMAX")
	gw.point(10, ext.Max.X, ext.Max.Y)
	gw.variable("$LIMMIN")
	gw.float(10, ext.Min.X)
	gw.float(20, ext.Min.Y)
	gw.variable("$LIMMAX")
	gw.float(10, ext.Max.X)
	gw.float(20, ext.Max.Y)
	gw.variable("$CLAYER")
	gw.str(8, d.layer)
	gw.variable("$LUNITS")
	gw.int(70, 2)
	gw.variable("$LUPREC")
	gw.int(70, 4)
	gw.variable("$INSUNITS")
	gw.int(70, int(d.header.InsUnits))
	gw.variable("$MEASUREMENT")
	gw.int(70, d.header.Measurement)
	gw.variable("$HANDSEED")
	gw.handle(5, d.handleSeed())
	gw.endSection()
}

func (d *Document) writeTables(gw *groupWriter) {
	gw.section("TABLES")

	gw.table("VPORT", handleVPortTable, 1)
	d.writeActiveViewport(gw)
	gw.str(0, "ENDTAB")

	gw.table("LTYPE", handleLTypeTable, 3)
	for _, lt := range []struct {
		name, description string
		handle            int
	}{
		{"ByBlock", "", handleLTypeByBlock},
		{"ByLayer", "", handleLTypeByLayer},
		{"Continuous", "Solid line", handleLTypeContinuous},
	} {
		gw.record("LTYPE", lt.handle, handleLTypeTable, "AcDbLinetypeTableRecord")
		gw.str(2, lt.name)
		gw.int(70, 0)
		gw.str(3, lt.description)
		gw.int(72, 65)
		gw.int(73, 0)
		gw.float(40, 0)
	}
	gw.str(0, "ENDTAB")

	layers := []struct {
		name   string
		handle int
	}{{DefaultLayer, handleLayerZero}}
	if d.layer != DefaultLayer {
		layers = append(layers, struct {
			name   string
			handle int
		}{d.layer, handleLayerCustom})
	}
	gw.table("LAYER", handleLayerTable, len(layers))
	for _, l := range layers {
		gw.record("LAYER", l.handle, handleLayerTable, "AcDbLayerTableRecord")
		gw.str(2, l.name)
		gw.int(70, 0)
		gw.int(62, 7)
		gw.str(6, "Continuous")
	}
	gw.str(0, "ENDTAB")

	gw.table("STYLE", handleStyleTable, 1)
	gw.record("STYLE", handleStyleStandard, handleStyleTable, "AcDbTextStyleTableRecord")
	gw.str(2, "Standard")
	gw.int(70, 0)
	gw.float(40, 0)
	gw.float(41, 1)
	gw.float(50, 0)
	gw.int(71, 0)
	gw.float(42, 2.5)
	gw.str(3, "txt")
	gw.str(4, "")
	gw.str(0, "ENDTAB")

	gw.table("VIEW", handleViewTable, 0)
	gw.str(0, "ENDTAB")

	gw.table("UCS", handleUCSTable, 0)
	gw.str(0, "ENDTAB")

	gw.table("APPID", handleAppIDTable, 1)
	gw.record("APPID", handleAppIDACAD, handleAppIDTable, "AcDbRegAppTableRecord")
	gw.str(2, "ACAD")
	gw.int(70, 0)
	gw.str(0, "ENDTAB")

	gw.table("DIMSTYLE", handleDimStyleTable, 1)
	gw.str(100, "AcDbDimStyleTable")
	gw.int(71, 0)
	gw.str(0, "DIMSTYLE")
	gw.handle(105, handleDimStyleStandard)
	gw.handle(330, handleDimStyleTable)
	gw.str(100, "AcDbSymbolTableRecord")
	gw.str(100, "AcDbDimStyleTableRecord")
	gw.str(2, "Standard")
	gw.int(70, 0)
	gw.str(0, "ENDTAB")

	gw.table("BLOCK_RECORD", handleBlockRecordTable, 2)
	for _, br := range []struct {
		name   string
		handle int
	}{
		{"*Model_Space", handleModelSpaceRecord},
		{"*Paper_Space", handlePaperSpaceRecord},
	} {
		gw.record("BLOCK_RECORD", br.handle, handleBlockRecordTable, "AcDbBlockTableRecord")
		gw.str(2, br.name)
		gw.int(70, 0)
		gw.int(280, 1)
		gw.int(281, 0)
	}
	gw.str(0, "ENDTAB")

	gw.endSection()
}

// writeActiveViewport centers the initial view on the drawing extents.
func (d *Document) writeActiveViewport(gw *groupWriter) {
	ext := d.Extents()
	cx, cy, height, aspect := 0.0, 0.0, 1.0, 1.0
	if !ext.Empty() {
		cx = (ext.Min.X + ext.Max.X) / 2
		cy = (ext.Min.Y + ext.Max.Y) / 2
		if ext.Height() > 0 {
			height = ext.Height() * 1.1
			if ext.Width() > 0 {
				aspect = ext.Width() / ext.Height()
			}
		} else if ext.Width() > 0 {
			height = ext.Width() * 1.1
		}
	}

	gw.record("VPORT", handleVPortActive, handleVPortTable, "AcDbViewportTableRecord")
	gw.str(2, "*Active")
	gw.int(70, 0)
	gw.float(10, 0)
	gw.float(20, 0)
	gw.float(11, 1)
	gw.float(21, 1)
	gw.float(12, cx)
	gw.float(22, cy)
	gw.float(13, 0)
	gw.float(23, 0)
	gw.float(14, 10)
	gw.float(24, 10)
	gw.float(15, 10)
	gw.float(25, 10)
	gw.point(16, 0, 0)
	gw.float(36, 1)
	gw.point(17, 0, 0)
	gw.float(40, height)
	gw.float(41, aspect)
	gw.float(42, 50)
	gw.float(43, 0)
	gw.float(44, 0)
	gw.float(50, 0)
	gw.float(51, 0)
	gw.int(71, 0)
	gw.int(72, 100)
	gw.int(73, 1)
	gw.int(74, 3)
	gw.int(75, 0)
	gw.int(76, 0)
	gw.int(77, 0)
	gw.int(78, 0)
}

func (d *Document) writeBlocks(gw *groupWriter) {
	gw.section("BLOCKS")
	for _, b := range []struct {
		name              string
		begin, end, owner int
		paperSpace        bool
	}{
		{"*Model_Space", handleModelSpaceBlock, handleModelSpaceEnd, handleModelSpaceRecord, false},
		{"*Paper_Space", handlePaperSpaceBlock, handlePaperSpaceEnd, handlePaperSpaceRecord, true},
	} {
		gw.str(0, "BLOCK")
		gw.handle(5, b.begin)
		gw.handle(330, b.owner)
		gw.str(100, "AcDbEntity")
		if b.paperSpace {
			gw.int(67, 1)
		}
		gw.str(8, DefaultLayer)
		gw.str(100, "AcDbBlockBegin")
		gw.str(2, b.name)
		gw.int(70, 0)
		gw.point(10, 0, 0)
		gw.str(3, b.name)
		gw.str(1, "")

		gw.str(0, "ENDBLK")
		gw.handle(5, b.end)
		gw.handle(330, b.owner)
		gw.str(100, "AcDbEntity")
		if b.paperSpace {
			gw.int(67, 1)
		}
		gw.str(8, DefaultLayer)
		gw.str(100, "AcDbBlockEnd")
	}
	gw.endSection()
}

func (d *Document) writeEntities(gw *groupWriter) {
	gw.section("ENTITIES")
	for i, e := range d.entities {
		h := firstEntityHandle + i
		switch e := e.(type) {
		case Point:
			gw.str(0, "POINT")
			gw.entityCommon(h, d.layer)
			gw.str(100, "AcDbPoint")
			gw.point(10, e.X, e.Y)
		case Polyline:
			flags := 0
			if e.Closed {
				flags = 1
			}
			gw.str(0, "LWPOLYLINE")
			gw.entityCommon(h, d.layer)
			gw.str(100, "AcDbPolyline")
			gw.int(90, len(e.Points))
			gw.int(70, flags)
			for _, v := range e.Points {
				gw.float(10, v.X)
				gw.float(20, v.Y)
			}
		}
	}
	gw.endSection()
}

func (d *Document) writeObjects(gw *groupWriter) {
	gw.section("OBJECTS")
	gw.str(0, "DICTIONARY")
	gw.handle(5, handleRootDictionary)
	gw.handle(330, 0)
	gw.str(100, "AcDbDictionary")
	gw.int(281, 1)
	gw.str(3, "ACAD_GROUP")
	gw.handle(350, handleGroupDictionary)

	gw.str(0, "DICTIONARY")
	gw.handle(5, handleGroupDictionary)
	gw.handle(330, handleRootDictionary)
	gw.str(100, "AcDbDictionary")
	gw.int(281, 1)
	gw.endSection()
}

// groupWriter writes code/value pairs and keeps the first error.
type groupWriter struct {
	w   *bufio.Writer
	err error
}

func (gw *groupWriter) pair(code int, value string) {
	if gw.err != nil {
		return
	}
	c := strconv.Itoa(code)
	if len(c) < 3 {
		c = strings.Repeat(" ", 3-len(c)) + c
	}
	_, gw.err = gw.w.WriteString(c + "\n" + value + "\n")
}

func (gw *groupWriter) str(code int, s string) {
	gw.pair(code, s)
}

func (gw *groupWriter) int(code, v int) {
	gw.pair(code, strconv.Itoa(v))
}

func (gw *groupWriter) float(code int, v float64) {
	gw.pair(code, formatFloat(v))
}

// point writes an x, y, z triple starting at code with z = 0.
func (gw *groupWriter) point(code int, x, y float64) {
	gw.float(code, x)
	gw.float(code+10, y)
	gw.float(code+20, 0)
}

func (gw *groupWriter) handle(code, h int) {
	gw.pair(code, strings.ToUpper(strconv.FormatInt(int64(h), 16)))
}

func (gw *groupWriter) variable(name string) {
	gw.pair(9, name)
}

func (gw *groupWriter) section(name string) {
	gw.str(0, "SECTION")
	gw.str(2, name)
}

func (gw *groupWriter) endSection() {
	gw.str(0, "ENDSEC")
}

func (gw *groupWriter) table(name string, h, count int) {
	gw.str(0, "TABLE")
	gw.str(2, name)
	gw.handle(5, h)
	gw.handle(330, 0)
	gw.str(100, "AcDbSymbolTable")
	gw.int(70, count)
}

func (gw *groupWriter) record(kind string, h, owner int, subclass string) {
	gw.str(0, kind)
	gw.handle(5, h)
	gw.handle(330, owner)
	gw.str(100, "AcDbSymbolTableRecord")
	gw.str(100, subclass)
}

func (gw *groupWriter) entityCommon(h int, layer string) {
	gw.handle(5, h)
	gw.handle(330, handleModelSpaceRecord)
	gw.str(100, "AcDbEntity")
	gw.str(8, layer)
}

// formatFloat writes the shortest representation that round-trips, always
// with a decimal point.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
