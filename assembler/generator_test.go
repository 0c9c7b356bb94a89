package assembler_test

import (
	"bytes"
	"log/slog"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Urethramancer/t8/assembler"
	"github.com/Urethramancer/t8/ast"
	"github.com/Urethramancer/t8/isa"
	"github.com/Urethramancer/t8/symtab"
)

var _ = Describe("Assembler", func() {
	var (
		mockCtrl *gomock.Controller
		reporter *MockReporter
		symbols  *symtab.Table[uint64]
		logBuf   *bytes.Buffer
		asm      *assembler.Assembler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		reporter = NewMockReporter(mockCtrl)

		var err error
		symbols, err = symtab.New[uint64]()
		Expect(err).NotTo(HaveOccurred())

		logBuf = &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		asm = assembler.New(symbols,
			assembler.WithReporter(reporter),
			assembler.WithLogger(logger),
		)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("end to end", func() {
		It("concatenates each instruction's encoding", func() {
			root := program(
				stmt(ast.NewLabel("start"), ins("push", reg("r1"))),
				stmt(ins("ldi", imm(5))),
				stmt(ins("br", ref("start"))),
			)

			code, err := asm.Assemble(root)

			Expect(err).NotTo(HaveOccurred())
			// br at offset 2 refers to offset 0: immediate -2.
			Expect(code).To(Equal([]byte{0x20, 0x58, 0xC7, 0x1F}))
			Expect(cap(code)).To(Equal(len(code)))
			off, ok := symbols.Lookup([]byte("start"))
			Expect(ok).To(BeTrue())
			Expect(off).To(BeZero())
		})

		It("accepts several sections and empty statements", func() {
			root := ast.NewRoot(
				ast.NewSection("text", stmt(ins("inc", reg("r2"))), stmt()),
				ast.NewSection("text", stmt(ast.NewLabel("tail")), stmt(ins("dec", reg("r2")))),
			)

			code, err := asm.Assemble(root)

			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal([]byte{0x44, 0x45}))
			Expect(asm.SortedSymbols()).To(Equal([]assembler.Symbol{{Name: "tail", Offset: 1}}))
		})
	})

	Context("label references", func() {
		It("resolves a backward reference without deferring", func() {
			root := program(
				stmt(ins("clr", reg("r0"))),
				stmt(ast.NewLabel("loop"), ins("dec", reg("r1"))),
				stmt(ins("cmpi", imm(0))),
				stmt(ins("bne", ref("loop"))),
			)

			code, err := asm.Assemble(root)

			Expect(err).NotTo(HaveOccurred())
			Expect(logBuf.String()).NotTo(ContainSubstring("msg=deferred"))
			// bne at 4, loop at 1: 1-4 = -3.
			Expect(code[4:]).To(Equal(encodeAlone("bne", -3)))
		})

		It("defers a forward reference and patches it to the same formula", func() {
			forward := program(
				stmt(ins("beq", ref("done"))),
				stmt(ins("add", reg("r1"), reg("r2"))),
				stmt(ast.NewLabel("done"), ins("push", reg("r1"))),
			)
			literal := program(
				stmt(ins("beq", imm(4))),
				stmt(ins("add", reg("r1"), reg("r2"))),
				stmt(ins("push", reg("r1"))),
			)

			code, err := asm.Assemble(forward)
			Expect(err).NotTo(HaveOccurred())
			Expect(logBuf.String()).To(ContainSubstring("msg=deferred"))
			Expect(logBuf.String()).To(ContainSubstring(`msg="fixup resolved"`))

			want, err := assembler.New(nil).Assemble(literal)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(want))
		})

		It("matches the output of the same label resolved immediately", func() {
			// Both programs place "here" at offset 2; only traversal order
			// of the definition relative to the use differs.
			forward := program(
				stmt(ins("jmp", ref("here"))),
				stmt(ast.NewLabel("here")),
				stmt(ins("jmp", ref("here"))),
			)
			backward := program(
				stmt(ins("jmp", imm(2))),
				stmt(ast.NewLabel("here")),
				stmt(ins("jmp", ref("here"))),
			)

			a, err := asm.Assemble(forward)
			Expect(err).NotTo(HaveOccurred())
			b, err := assembler.New(nil).Assemble(backward)
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(Equal(b))
			Expect(a[2:]).To(Equal([]byte{0x0C, 0x00}))
		})

		It("replays several fixups in order", func() {
			root := program(
				stmt(ins("bz", ref("b"))),
				stmt(ins("bnz", ref("a"))),
				stmt(ast.NewLabel("a"), ins("call", ref("b"))),
				stmt(ast.NewLabel("b"), ins("trap", imm(1))),
			)

			code, err := asm.Assemble(root)

			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(HaveLen(5))
			Expect(code[0:1]).To(Equal(encodeAlone("bz", 4)))
			Expect(code[1:2]).To(Equal(encodeAlone("bnz", 1)))
			Expect(code[2:4]).To(Equal(encodeAlone("call", 2)))
		})

		It("negates a label reference", func() {
			root := program(
				stmt(ast.NewLabel("top"), ins("push", reg("r0"))),
				stmt(ins("push", reg("r1"))),
				stmt(ins("bz", ast.NewNeg(ref("top")))),
				stmt(ins("bz", ast.NewNeg(ast.NewNeg(ref("top"))))),
			)

			code, err := asm.Assemble(root)

			Expect(err).NotTo(HaveOccurred())
			// -(0 - 2) = 2 and -(-(0 - 3)) = -3.
			Expect(code[2:3]).To(Equal(encodeAlone("bz", 2)))
			Expect(code[3:4]).To(Equal(encodeAlone("bz", -3)))
		})

		It("negates a forward reference after replay", func() {
			root := program(
				stmt(ins("bnz", ast.NewNeg(ref("end")))),
				stmt(ins("not", reg("r3"))),
				stmt(ast.NewLabel("end")),
			)

			code, err := asm.Assemble(root)

			Expect(err).NotTo(HaveOccurred())
			Expect(code[0:1]).To(Equal(encodeAlone("bnz", -2)))
		})
	})

	Context("user errors", func() {
		It("aborts on a label that is never defined", func() {
			root := program(
				stmt(ins("jmp", at(ref("nowhere"), 3, 9))),
			)
			reporter.EXPECT().
				Report(ast.Token{Text: "nowhere", Line: 3, Column: 9}, assembler.SeverityFatal, gomock.Any()).
				Do(func(_ ast.Token, _ assembler.Severity, msg string) {
					Expect(msg).To(ContainSubstring("label not found: nowhere"))
				})

			code, err := asm.Assemble(root)

			Expect(code).To(BeNil())
			Expect(err).To(MatchError(assembler.ErrLabelNotFound))
			var diag *assembler.Diagnostic
			Expect(err).To(BeAssignableToTypeOf(diag))
		})

		DescribeTable("rejects out-of-range immediates",
			func(mnemonic string, v int64) {
				reporter.EXPECT().Report(gomock.Any(), assembler.SeverityFatal, gomock.Any())

				code, err := asm.Assemble(program(stmt(ins(mnemonic, imm(v)))))

				Expect(code).To(BeNil())
				Expect(err).To(MatchError(assembler.ErrOutOfRange))
			},
			Entry("narrow above", "brs", int64(8)),
			Entry("narrow below", "brs", int64(-5)),
			Entry("extended above", "addi", int64(16)),
			Entry("extended below", "addi", int64(-9)),
			Entry("wide above", "ldb", int64(256)),
			Entry("wide below", "ldb", int64(-129)),
			Entry("wide extended above", "ldw", int64(4096)),
			Entry("wide extended below", "ldw", int64(-2049)),
		)

		It("rejects a label reference that resolves out of range", func() {
			statements := []*ast.Node{stmt(ast.NewLabel("far"))}
			for i := 0; i < 5; i++ {
				statements = append(statements, stmt(ins("inc", reg("r0"))))
			}
			statements = append(statements, stmt(ins("brs", ref("far"))))
			reporter.EXPECT().Report(gomock.Any(), assembler.SeverityFatal, gomock.Any())

			_, err := asm.Assemble(program(statements...))

			Expect(err).To(MatchError(assembler.ErrOutOfRange))
		})

		It("rejects a duplicate label", func() {
			root := program(
				stmt(ast.NewLabel("x"), ins("inc", reg("r0"))),
				stmt(at(ast.NewLabel("x"), 2, 1)),
			)
			reporter.EXPECT().Report(ast.Token{Text: "x", Line: 2, Column: 1}, assembler.SeverityFatal, gomock.Any())

			_, err := asm.Assemble(root)

			Expect(err).To(MatchError(assembler.ErrDuplicateLabel))
			Expect(err.Error()).To(ContainSubstring("first defined at offset 0"))
		})

		DescribeTable("rejects operands of the wrong class",
			func(n *ast.Node, sentinel error) {
				reporter.EXPECT().Report(gomock.Any(), assembler.SeverityFatal, gomock.Any())

				_, err := asm.Assemble(program(stmt(n)))

				Expect(err).To(MatchError(sentinel))
			},
			Entry("constant as register", ins("push", imm(3)), assembler.ErrNotRegister),
			Entry("unknown register name", ins("pop", ref("r9")), assembler.ErrNotRegister),
			Entry("second operand not a register", ins("mov", reg("r1"), imm(2)), assembler.ErrNotRegister),
			Entry("register as immediate", ins("ldi", reg("r1")), assembler.ErrNotImmediate),
		)
	})

	Context("contract violations", func() {
		DescribeTable("aborts without reporting",
			func(root *ast.Node) {
				code, err := asm.Assemble(root)

				Expect(code).To(BeNil())
				Expect(err).To(MatchError(assembler.ErrContract))
			},
			Entry("nil root", (*ast.Node)(nil)),
			Entry("unrecognised section", ast.NewRoot(ast.NewSection("data"))),
			Entry("bare register", program(stmt(reg("r1")))),
			Entry("bare immediate", program(stmt(imm(1)))),
			Entry("invalid node", program(&ast.Node{Kind: ast.Invalid})),
			Entry("too many operands", program(stmt(ins("push", reg("r1"), reg("r2"))))),
			Entry("too few operands", program(stmt(ins("add", reg("r1"))))),
			Entry("unknown mnemonic", program(stmt(ins("frobnicate", imm(1))))),
			Entry("label without name", program(stmt(ast.NewLabel("")))),
			Entry("size class mismatch", program(stmt(withSize(ins("ldi", imm(1)), 1)))),
			Entry("layout mismatch", program(stmt(withLayout(ins("ldi", imm(1)), isa.LayoutImmWide)))),
			Entry("layout outside the table", program(stmt(withLayout(ins("ldi", imm(1)), isa.Layout(42))))),
			Entry("unknown operation", program(stmt(ins("ldi", &ast.Node{
				Kind: ast.Operation, Op: ast.Op(9), Children: []*ast.Node{imm(1)},
			})))),
			Entry("negation without operand", program(stmt(ins("ldi", &ast.Node{
				Kind: ast.Operation, Op: ast.OpNeg,
			})))),
			Entry("label as operand", program(stmt(ins("ldi", ast.NewLabel("x"))))),
		)

		It("refuses to run twice", func() {
			_, err := asm.Assemble(program())
			Expect(err).NotTo(HaveOccurred())

			_, err = asm.Assemble(program())
			Expect(err).To(MatchError(assembler.ErrReused))
		})
	})

	It("lists each instruction with its final bytes", func() {
		root := program(
			stmt(ins("call", ref("f"))),
			stmt(ast.NewLabel("f"), ins("in", reg("r4"))),
		)

		code, err := asm.Assemble(root)
		Expect(err).NotTo(HaveOccurred())

		lines := asm.Listing()
		Expect(lines).To(HaveLen(2))
		Expect(lines[0].Offset).To(Equal(0))
		Expect(lines[0].Bytes).To(Equal(code[0:2]))
		Expect(lines[1].Offset).To(Equal(2))
		Expect(lines[1].Node.Name()).To(Equal("in"))
	})
})

// encodeAlone assembles a single immediate instruction with a literal
// operand.
func encodeAlone(mnemonic string, v int64) []byte {
	code, err := assembler.New(nil).Assemble(program(stmt(ins(mnemonic, imm(v)))))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return code
}

func withSize(n *ast.Node, size uint8) *ast.Node {
	n.Desc.Size = size
	return n
}

func withLayout(n *ast.Node, l isa.Layout) *ast.Node {
	n.Desc.Layout = l
	return n
}
