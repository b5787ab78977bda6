// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package host

import (
	"bufio"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// field is an operand field of an instruction encoding. The operand bits are
// deposited, lowest first, into the set bits of pattern.
type field struct {
	pattern uint16
	max     int64 // Largest operand value.
	scale   int64 // Operand values must be multiples of scale.
}

var (
	fieldRd    = field{0x0007, 7, 1}    // Low register, bits 0-2.
	fieldRs    = field{0x0038, 7, 1}    // Low register, bits 3-5.
	fieldRo    = field{0x01c0, 7, 1}    // Low register, bits 6-8.
	fieldRh    = field{0x0700, 7, 1}    // Low register, bits 8-10.
	fieldHd    = field{0x0087, 15, 1}   // Any register, bits 0-2 and 7.
	fieldHm    = field{0x0078, 15, 1}   // Any register, bits 3-6.
	fieldImm8  = field{0x00ff, 255, 1}  // Byte immediate.
	fieldWord8 = field{0x00ff, 1020, 4} // Word offset, 8 bits.
	fieldSp7   = field{0x007f, 508, 4}  // Stack adjustment.
	fieldImm3  = field{0x01c0, 7, 1}    // 3 bit immediate.
	fieldImm5  = field{0x07c0, 31, 1}   // Shift or byte offset.
	fieldHalf5 = field{0x07c0, 62, 2}   // Halfword offset.
	fieldWord5 = field{0x07c0, 124, 4}  // Word offset, 5 bits.
	fieldList  = field{0x00ff, 255, 1}  // Low register list.
)

// deposit the operand value into code.
func (fd field) deposit(code uint16, value int64) (uint16, error) {
	if value < 0 || value > fd.max || value%fd.scale != 0 {
		return code, ErrOperandRange(value)
	}

	operand := uint16(value / fd.scale)
	for b := range 16 {
		mask := uint16(1) << b
		if fd.pattern&mask == 0 {
			continue
		}
		if operand&1 != 0 {
			code |= mask
		}
		operand >>= 1
	}

	return code, nil
}

// Branch is the kind of label operand of an encoding.
type Branch int

const (
	BRANCH_NONE   = Branch(iota)
	BRANCH_COND   // 8 bit offset.
	BRANCH_ALWAYS // 11 bit offset.
	BRANCH_LINK   // 22 bit offset, in two instructions.
)

// encoding of one instruction form.
type encoding struct {
	code   uint16
	fields []field
	branch Branch
}

// size in instructions.
func (enc encoding) size() int {
	if enc.branch == BRANCH_LINK {
		return 2
	}
	return 1
}

// encodings maps instruction forms to their encodings. A form is the
// mnemonic followed by the operand shapes: 'r' for r0-r12, '#' for an
// immediate, '*' for a label and '{r}' for a register list.
var encodings = map[string]encoding{
	"adc r,r":       {0x4140, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"add r,r":       {0x4400, []field{fieldHd, fieldHm}, BRANCH_NONE},
	"add r,pc,#":    {0xa000, []field{fieldRh, fieldWord8}, BRANCH_NONE},
	"add r,sp,#":    {0xa800, []field{fieldRh, fieldWord8}, BRANCH_NONE},
	"add sp,#":      {0xb000, []field{fieldSp7}, BRANCH_NONE},
	"add r,r,#":     {0x1c00, []field{fieldRd, fieldRs, fieldImm3}, BRANCH_NONE},
	"add r,r,r":     {0x1800, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"add r,#":       {0x3000, []field{fieldRh, fieldImm8}, BRANCH_NONE},
	"adr r,#":       {0xa000, []field{fieldRh, fieldWord8}, BRANCH_NONE},
	"and r,r":       {0x4000, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"asr r,r":       {0x4100, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"asr r,r,#":     {0x1000, []field{fieldRd, fieldRs, fieldImm5}, BRANCH_NONE},
	"b *":           {0xe000, nil, BRANCH_ALWAYS},
	"bic r,r":       {0x4380, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"bl *":          {0xf000, nil, BRANCH_LINK},
	"beq *":         {0xd000, nil, BRANCH_COND},
	"bne *":         {0xd100, nil, BRANCH_COND},
	"bcs *":         {0xd200, nil, BRANCH_COND},
	"bcc *":         {0xd300, nil, BRANCH_COND},
	"bmi *":         {0xd400, nil, BRANCH_COND},
	"bpl *":         {0xd500, nil, BRANCH_COND},
	"bvs *":         {0xd600, nil, BRANCH_COND},
	"bvc *":         {0xd700, nil, BRANCH_COND},
	"bhi *":         {0xd800, nil, BRANCH_COND},
	"bls *":         {0xd900, nil, BRANCH_COND},
	"bge *":         {0xda00, nil, BRANCH_COND},
	"blt *":         {0xdb00, nil, BRANCH_COND},
	"bgt *":         {0xdc00, nil, BRANCH_COND},
	"ble *":         {0xdd00, nil, BRANCH_COND},
	"bx r":          {0x4700, []field{fieldHm}, BRANCH_NONE},
	"bx lr":         {0x4770, nil, BRANCH_NONE},
	"cmn r,r":       {0x42c0, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"cmp r,r":       {0x4280, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"cmp r,#":       {0x2800, []field{fieldRh, fieldImm8}, BRANCH_NONE},
	"eor r,r":       {0x4040, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"ldmia r!,{r}":  {0xc800, []field{fieldRh, fieldList}, BRANCH_NONE},
	"ldr r,[r,#]":   {0x6800, []field{fieldRd, fieldRs, fieldWord5}, BRANCH_NONE},
	"ldr r,[r,r]":   {0x5800, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"ldr r,[pc,#]":  {0x4800, []field{fieldRh, fieldWord8}, BRANCH_NONE},
	"ldr r,[sp,#]":  {0x9800, []field{fieldRh, fieldWord8}, BRANCH_NONE},
	"ldrb r,[r,#]":  {0x7800, []field{fieldRd, fieldRs, fieldImm5}, BRANCH_NONE},
	"ldrb r,[r,r]":  {0x5c00, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"ldrh r,[r,#]":  {0x8800, []field{fieldRd, fieldRs, fieldHalf5}, BRANCH_NONE},
	"ldrh r,[r,r]":  {0x5a00, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"ldrsb r,[r,r]": {0x5600, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"ldrsh r,[r,r]": {0x5e00, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"lsl r,r":       {0x4080, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"lsl r,r,#":     {0x0000, []field{fieldRd, fieldRs, fieldImm5}, BRANCH_NONE},
	"lsr r,r":       {0x40c0, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"lsr r,r,#":     {0x0800, []field{fieldRd, fieldRs, fieldImm5}, BRANCH_NONE},
	"mov r,r":       {0x0000, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"mov r,#":       {0x2000, []field{fieldRh, fieldImm8}, BRANCH_NONE},
	"mul r,r":       {0x4340, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"mvn r,r":       {0x43c0, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"neg r,r":       {0x4240, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"orr r,r":       {0x4300, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"pop {r}":       {0xbc00, []field{fieldList}, BRANCH_NONE},
	"pop {r,pc}":    {0xbd00, []field{fieldList}, BRANCH_NONE},
	"push {r}":      {0xb400, []field{fieldList}, BRANCH_NONE},
	"push {r,lr}":   {0xb500, []field{fieldList}, BRANCH_NONE},
	"rev r,r":       {0xba00, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"revh r,r":      {0xba40, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"rev16 r,r":     {0xba40, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"revsh r,r":     {0xbac0, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"ror r,r":       {0x41c0, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"sbc r,r":       {0x4180, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"stmia r!,{r}":  {0xc000, []field{fieldRh, fieldList}, BRANCH_NONE},
	"str r,[r,#]":   {0x6000, []field{fieldRd, fieldRs, fieldWord5}, BRANCH_NONE},
	"str r,[r,r]":   {0x5000, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"str r,[sp,#]":  {0x9000, []field{fieldRh, fieldWord8}, BRANCH_NONE},
	"strb r,[r,#]":  {0x7000, []field{fieldRd, fieldRs, fieldImm5}, BRANCH_NONE},
	"strb r,[r,r]":  {0x5400, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"strh r,[r,#]":  {0x8000, []field{fieldRd, fieldRs, fieldHalf5}, BRANCH_NONE},
	"strh r,[r,r]":  {0x5200, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"sub sp,#":      {0xb080, []field{fieldSp7}, BRANCH_NONE},
	"sub r,r,#":     {0x1e00, []field{fieldRd, fieldRs, fieldImm3}, BRANCH_NONE},
	"sub r,r,r":     {0x1a00, []field{fieldRd, fieldRs, fieldRo}, BRANCH_NONE},
	"sub r,#":       {0x3800, []field{fieldRh, fieldImm8}, BRANCH_NONE},
	"swi #":         {0xdf00, []field{fieldImm8}, BRANCH_NONE},
	"sxtb r,r":      {0xb240, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"sxth r,r":      {0xb200, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"tst r,r":       {0x4200, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"uxtb r,r":      {0xb2c0, []field{fieldRd, fieldRs}, BRANCH_NONE},
	"uxth r,r":      {0xb280, []field{fieldRd, fieldRs}, BRANCH_NONE},
}

// registerMap maps the numbered registers r0-r12.
var registerMap = map[string]int64{
	"r0": 0, "r1": 1, "r2": 2, "r3": 3, "r4": 4, "r5": 5, "r6": 6, "r7": 7,
	"r8": 8, "r9": 9, "r10": 10, "r11": 11, "r12": 12, "ip": 12,
}

// specialMap maps the registers that are part of an instruction form.
var specialMap = map[string]string{
	"r13": "sp", "sp": "sp",
	"r14": "lr", "lr": "lr",
	"r15": "pc", "pc": "pc",
}

var labelRegexp = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// statement is one assembled line.
type statement struct {
	LineNo   int
	Line     string
	Ip       int     // Instruction index.
	Form     string  // Instruction form, an encodings key.
	Values   []int64 // Field values, in order.
	Target   string  // Branch label.
	Encoding encoding
}

// Assembler is a two pass assembler for the Thumb instructions executed by
// the device. Registers are named r0-r15, ip, sp, lr and pc; immediates are
// written '#n' in decimal, or in hexadecimal with a '0x' prefix. Comments
// start with ';' or '@'. A label is a name followed by ':'.
type Assembler struct {
	Verbose bool           // If set, logs each assembled line.
	Label   map[string]int // Map of labels to instruction indexes.

	statement []statement
}

// Assemble Thumb source into instructions.
func Assemble(source string) (program []uint16, err error) {
	asm := &Assembler{}
	return asm.Parse(strings.NewReader(source))
}

// Parse assembles an input stream into instructions.
func (asm *Assembler) Parse(input io.Reader) (program []uint16, err error) {
	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int)
	asm.statement = asm.statement[:0]

	ip := 0
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line = scanner.Text()
		lineno++

		var st *statement
		st, err = asm.parseLine(line, ip)
		if err != nil {
			return
		}
		if st == nil {
			continue
		}

		st.LineNo = lineno
		st.Line = line
		asm.statement = append(asm.statement, *st)
		ip += st.Encoding.size()
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Link labels and encode.
	for _, st := range asm.statement {
		lineno = st.LineNo
		line = st.Line

		var codes []uint16
		codes, err = asm.encode(&st)
		if err != nil {
			return
		}

		if asm.Verbose {
			log.Printf("host: %v: %04x %v", st.LineNo, codes, strings.TrimSpace(st.Line))
		}

		program = append(program, codes...)
	}

	return
}

// parseLine parses a single line, defining its labels. The statement is nil
// if the line holds no instruction.
func (asm *Assembler) parseLine(line string, ip int) (st *statement, err error) {
	text, _, _ := strings.Cut(line, ";")
	text, _, _ = strings.Cut(text, "@")
	text = strings.TrimSpace(text)

	for {
		label, rest, ok := strings.Cut(text, ":")
		if !ok {
			break
		}
		label = strings.TrimSpace(label)
		if !labelRegexp.MatchString(label) {
			err = ErrLabelSyntax
			return
		}
		_, dup := asm.Label[label]
		if dup {
			err = ErrLabelDuplicate(label)
			return
		}
		asm.Label[label] = ip
		text = strings.TrimSpace(rest)
	}

	if len(text) == 0 {
		return
	}

	mnemonic, operands := text, ""
	if n := strings.IndexFunc(text, unicode.IsSpace); n >= 0 {
		mnemonic, operands = text[:n], text[n:]
	}
	mnemonic = strings.ToLower(mnemonic)

	st = &statement{Ip: ip}

	var shapes []string
	for _, word := range splitOperands(operands) {
		var shape string
		var values []int64
		shape, values, err = operand(word)
		if err != nil {
			return
		}
		if shape == "*" {
			st.Target = word
		}
		shapes = append(shapes, shape)
		st.Values = append(st.Values, values...)
	}

	st.Form = mnemonic
	if len(shapes) > 0 {
		st.Form += " " + strings.Join(shapes, ",")
	}

	enc, ok := encodings[st.Form]
	if !ok {
		err = ErrInstructionInvalid
		return
	}
	st.Encoding = enc

	return
}

// splitOperands splits on the commas outside brackets and braces, removing
// all whitespace.
func splitOperands(text string) (words []string) {
	text = strings.Join(strings.Fields(text), "")
	if len(text) == 0 {
		return
	}

	depth := 0
	start := 0
	for n, c := range text {
		switch c {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		case ',':
			if depth == 0 {
				words = append(words, text[start:n])
				start = n + 1
			}
		}
	}
	words = append(words, text[start:])

	return
}

// operand returns the shape of an operand and its field values.
func operand(word string) (shape string, values []int64, err error) {
	lower := strings.ToLower(word)

	switch {
	case strings.HasPrefix(lower, "[") && strings.HasSuffix(lower, "]"):
		return memoryOperand(lower[1 : len(lower)-1])
	case strings.HasPrefix(lower, "{") && strings.HasSuffix(lower, "}"):
		return listOperand(lower[1 : len(lower)-1])
	case strings.HasPrefix(lower, "#"):
		var value int64
		value, err = strconv.ParseInt(lower[1:], 0, 32)
		if err != nil {
			err = ErrOperandSyntax
			return
		}
		return "#", []int64{value}, nil
	}

	writeback := strings.HasSuffix(lower, "!")
	name := strings.TrimSuffix(lower, "!")

	if reg, ok := registerMap[name]; ok {
		shape = "r"
		if writeback {
			shape = "r!"
		}
		return shape, []int64{reg}, nil
	}

	if writeback {
		err = ErrOperandSyntax
		return
	}

	if special, ok := specialMap[name]; ok {
		return special, nil, nil
	}

	if !labelRegexp.MatchString(word) {
		err = ErrOperandSyntax
		return
	}

	return "*", nil, nil
}

// memoryOperand parses the inside of '[base, offset]'.
func memoryOperand(text string) (shape string, values []int64, err error) {
	words := strings.Split(text, ",")
	if len(words) == 1 {
		words = append(words, "#0")
	}
	if len(words) != 2 {
		err = ErrOperandSyntax
		return
	}

	var shapes []string
	for _, word := range words {
		var part string
		var vals []int64
		part, vals, err = operand(word)
		if err != nil {
			return
		}
		if part != "r" && part != "#" && part != "sp" && part != "pc" {
			err = ErrOperandSyntax
			return
		}
		shapes = append(shapes, part)
		values = append(values, vals...)
	}

	shape = "[" + strings.Join(shapes, ",") + "]"
	return
}

// listOperand parses the inside of '{reg, reg-reg, ...}' into a mask of the
// low registers, plus lr or pc.
func listOperand(text string) (shape string, values []int64, err error) {
	var mask int64
	var special string

	for _, word := range strings.Split(text, ",") {
		if name, ok := specialMap[word]; ok {
			if name == "sp" || len(special) != 0 {
				err = ErrOperandSyntax
				return
			}
			special = name
			continue
		}

		first, last, ranged := strings.Cut(word, "-")
		if !ranged {
			last = first
		}

		lo, ok_lo := registerMap[first]
		hi, ok_hi := registerMap[last]
		if !ok_lo || !ok_hi || lo > hi {
			err = ErrOperandSyntax
			return
		}
		if hi > 7 {
			err = ErrOperandRange(hi)
			return
		}

		for reg := lo; reg <= hi; reg++ {
			mask |= 1 << reg
		}
	}

	shape = "{r}"
	if len(special) != 0 {
		shape = "{r," + special + "}"
	}
	values = []int64{mask}

	return
}

// encode a statement into its instructions.
func (asm *Assembler) encode(st *statement) (codes []uint16, err error) {
	enc := st.Encoding
	code := enc.code

	if enc.branch == BRANCH_NONE {
		if len(st.Values) != len(enc.fields) {
			err = ErrInstructionInvalid
			return
		}
		for n, fd := range enc.fields {
			code, err = fd.deposit(code, st.Values[n])
			if err != nil {
				return
			}
		}
		codes = []uint16{code}
		return
	}

	target, ok := asm.Label[st.Target]
	if !ok {
		err = ErrLabelMissing(st.Target)
		return
	}

	// Offsets are in instructions, from two past the branch.
	offset := int64(target - st.Ip - 2)

	switch enc.branch {
	case BRANCH_COND:
		if offset < -128 || offset > 127 {
			err = ErrBranchRange(st.Target)
			return
		}
		codes = []uint16{code | uint16(offset)&0x00ff}
	case BRANCH_ALWAYS:
		if offset < -1024 || offset > 1023 {
			err = ErrBranchRange(st.Target)
			return
		}
		codes = []uint16{code | uint16(offset)&0x07ff}
	case BRANCH_LINK:
		if offset < -(1<<21) || offset >= 1<<21 {
			err = ErrBranchRange(st.Target)
			return
		}
		codes = []uint16{
			code | uint16(offset>>11)&0x07ff,
			code | 0x0800 | uint16(offset)&0x07ff,
		}
	}

	return
}
