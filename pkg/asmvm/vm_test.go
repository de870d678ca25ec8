package asmvm

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// addsOne is the NASM shape genProc/genAssign produce for:
//
//	proc addOne(x: int, ref out: int) { out := x + 1; }
const addsOne = `
extern printi, printc, readi, readc, exit, time_

global addOne
section .text

addOne:
    push rbp
    mov rbp, rsp
    sub rsp, 16
    mov [rbp-8], rdi
    mov [rbp-16], rsi
    mov rax, [rbp-8]
    push rax
    mov rax, 1
    pop rcx
    add rax, rcx
    push rax
    mov rbx, [rbp-16]
    pop rax
    mov [rbx], rax
    mov rsp, rbp
    pop rbp
    ret
`

func TestCallRunsSimpleProcedureAndWritesRefOutput(t *testing.T) {
	prog, err := Assemble(addsOne)
	require.NoError(t, err)

	vm := NewVM(prog)
	out := vm.Alloc(1)
	require.NoError(t, vm.Call("addOne", 41, out))
	require.Equal(t, int64(42), vm.ReadWord(out))
}

// boundedLoop sums 0..count-1 into an out-ref, using a while loop and a
// comparison, the same jump shape genWhile/genComparisonJumpIfFalse emit.
const boundedLoop = `
global sumTo
section .text

sumTo:
    push rbp
    mov rbp, rsp
    sub rsp, 32
    mov [rbp-8], rdi
    mov [rbp-16], rsi
    mov qword [rbp-24], 0
    mov qword [rbp-32], 0
.L0:
    mov rax, [rbp-32]
    push rax
    mov rax, [rbp-8]
    pop rcx
    cmp rcx, rax
    jge .L1
    mov rax, [rbp-24]
    push rax
    mov rax, [rbp-32]
    pop rcx
    add rax, rcx
    push rax
    lea rbx, [rbp-24]
    pop rax
    mov [rbx], rax
    mov rax, [rbp-32]
    push rax
    mov rax, 1
    pop rcx
    add rax, rcx
    push rax
    lea rbx, [rbp-32]
    pop rax
    mov [rbx], rax
    jmp .L0
.L1:
    mov rax, [rbp-24]
    push rax
    mov rbx, [rbp-16]
    pop rax
    mov [rbx], rax
    mov rsp, rbp
    pop rbp
    ret
`

func TestCallRunsWhileLoopWithComparisonJump(t *testing.T) {
	prog, err := Assemble(strings.ReplaceAll(boundedLoop, "qword ", ""))
	require.NoError(t, err)

	vm := NewVM(prog)
	out := vm.Alloc(1)
	require.NoError(t, vm.Call("sumTo", 5, out))
	require.Equal(t, int64(0+1+2+3+4), vm.ReadWord(out))
}

const divRem = `
global divide
section .text

divide:
    push rbp
    mov rbp, rsp
    mov [rbp-8], rdi
    mov [rbp-16], rsi
    mov [rbp-24], rdx
    mov rax, [rbp-8]
    push rax
    mov rax, [rbp-16]
    pop rcx
    xchg rax, rcx
    cqo
    idiv rcx
    push rax
    mov rbx, [rbp-24]
    pop rax
    mov [rbx], rax
    mov rsp, rbp
    pop rbp
    ret
`

func TestCallRunsDivisionViaXchgCqoIdiv(t *testing.T) {
	prog, err := Assemble(divRem)
	require.NoError(t, err)

	vm := NewVM(prog)
	out := vm.Alloc(1)
	require.NoError(t, vm.Call("divide", 17, 5, out))
	require.Equal(t, int64(3), vm.ReadWord(out))
}

const boundsCheck = `
extern exit
global pick
section .text

pick:
    push rbp
    mov rbp, rsp
    sub rsp, 16
    mov [rbp-8], rdi
    mov [rbp-16], rsi
    mov rbx, [rbp-16]
    push rbx
    mov rax, [rbp-8]
    cmp rax, 3
    jae .Lbounds_fail_pick
    mov rcx, 8
    imul rax, rcx
    pop rbx
    add rbx, rax
    mov rax, [rbx]
    mov rsp, rbp
    pop rbp
    ret
.Lbounds_fail_pick:
    call exit
`

func TestArrayIndexOutOfBoundsCallsExitBuiltin(t *testing.T) {
	prog, err := Assemble(boundsCheck)
	require.NoError(t, err)

	arr := NewVM(prog)
	base := arr.AllocArray(10, 20, 30)
	require.NoError(t, arr.Call("pick", 1, base))
	require.False(t, arr.Exited)
	require.Equal(t, int64(20), arr.Rax)

	oob := NewVM(prog)
	base2 := oob.AllocArray(10, 20, 30)
	require.NoError(t, oob.Call("pick", 5, base2))
	require.True(t, oob.Exited)

	neg := NewVM(prog)
	base3 := neg.AllocArray(10, 20, 30)
	require.NoError(t, neg.Call("pick", -1, base3))
	require.True(t, neg.Exited, "a negative index must wrap to a huge unsigned value and trip jae")
}

const printsArg = `
extern printi
global shout
section .text

shout:
    push rbp
    mov rbp, rsp
    mov [rbp-8], rdi
    mov rax, [rbp-8]
    mov rdi, rax
    call printi
    mov rsp, rbp
    pop rbp
    ret
`

func TestCallInvokesPrintiBuiltinAgainstCapturedStdout(t *testing.T) {
	prog, err := Assemble(printsArg)
	require.NoError(t, err)

	vm := NewVM(prog)
	var buf strings.Builder
	vm.Stdout = &buf
	require.NoError(t, vm.Call("shout", 99))
	require.Equal(t, "99", buf.String())
}

const readsInput = `
extern readi
global fetch
section .text

fetch:
    push rbp
    mov rbp, rsp
    mov [rbp-8], rdi
    mov rdi, [rbp-8]
    call readi
    mov rsp, rbp
    pop rbp
    ret
`

func TestCallInvokesReadiBuiltinAgainstScriptedStdin(t *testing.T) {
	prog, err := Assemble(readsInput)
	require.NoError(t, err)

	vm := NewVM(prog)
	vm.Stdin = bufio.NewReader(strings.NewReader("7\n"))
	out := vm.Alloc(1)
	require.NoError(t, vm.Call("fetch", out))
	require.Equal(t, int64(7), vm.ReadWord(out))
}

func TestAllocArrayLaysOutElementsEightBytesApart(t *testing.T) {
	vm := NewVM(&Program{Labels: map[string]int{}})
	base := vm.AllocArray(1, 2, 3)
	require.Equal(t, int64(1), vm.ReadWord(base))
	require.Equal(t, int64(2), vm.ReadWord(base+8))
	require.Equal(t, int64(3), vm.ReadWord(base+16))
}

func TestCallReportsUndefinedProcedure(t *testing.T) {
	vm := NewVM(&Program{Labels: map[string]int{}})
	err := vm.Call("nope")
	require.Error(t, err)
}
