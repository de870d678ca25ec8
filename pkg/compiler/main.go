// Package compiler implements the core of splc, a compiler for SPL
// (Simple Programming Language) that targets x86-64 NASM assembly under
// the System V AMD64 ABI.
//
// Pipeline: SPL source → Lex → Parse → BuildSymbols → ResolveProgram →
// AllocateProgram → Generate → NASM assembly text.
package compiler
