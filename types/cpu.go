package types

import (
	"fmt"

	"github.com/appsworld/go-machview/pkg/record"
)

// A CPU is a Mach-O cpu type.
type CPU uint32

const (
	cpuArchMask = 0xff000000 //  mask for architecture bits
	cpuArch64   = 0x01000000 // 64 bit ABI
	cpuArch6432 = 0x02000000 // ABI for 64-bit hardware with 32-bit types; LP32
)

const (
	CPUMc680x0 CPU = 6
	CPU386     CPU = 7
	CPUAmd64   CPU = CPU386 | cpuArch64
	CPUMc98000 CPU = 10
	CPUHppa    CPU = 11
	CPUArm     CPU = 12
	CPUArm64   CPU = CPUArm | cpuArch64
	CPUArm6432 CPU = CPUArm | cpuArch6432
	CPUMc88000 CPU = 13
	CPUSparc   CPU = 14
	CPUI860    CPU = 15
	CPUPpc     CPU = 18
	CPUPpc64   CPU = CPUPpc | cpuArch64
)

// Is64 reports whether the cpu type uses the 64 bit ABI.
func (i CPU) Is64() bool { return i&cpuArch64 != 0 }

var cpuStrings = []record.IntName{
	{I: uint64(CPU386), S: "i386"},
	{I: uint64(CPUAmd64), S: "Amd64"},
	{I: uint64(CPUArm), S: "ARM"},
	{I: uint64(CPUArm64), S: "AARCH64"},
	{I: uint64(CPUArm6432), S: "ARM64_32"},
	{I: uint64(CPUPpc), S: "PowerPC"},
	{I: uint64(CPUPpc64), S: "PowerPC 64"},
}

func (i CPU) String() string   { return stringName(uint64(i), cpuStrings, false) }
func (i CPU) GoString() string { return stringName(uint64(i), cpuStrings, true) }

// CPUTypes maps <mach/machine.h> cpu type names to values.
var CPUTypes = record.MustMapping(
	record.IntName{I: uint64(CPUMc680x0), S: "CPU_TYPE_MC680x0"},
	record.IntName{I: uint64(CPU386), S: "CPU_TYPE_I386"},
	record.IntName{I: uint64(CPUAmd64), S: "CPU_TYPE_X86_64"},
	record.IntName{I: uint64(CPUMc98000), S: "CPU_TYPE_MC98000"},
	record.IntName{I: uint64(CPUHppa), S: "CPU_TYPE_HPPA"},
	record.IntName{I: uint64(CPUArm), S: "CPU_TYPE_ARM"},
	record.IntName{I: uint64(CPUArm64), S: "CPU_TYPE_ARM64"},
	record.IntName{I: uint64(CPUArm6432), S: "CPU_TYPE_ARM64_32"},
	record.IntName{I: uint64(CPUMc88000), S: "CPU_TYPE_MC88000"},
	record.IntName{I: uint64(CPUSparc), S: "CPU_TYPE_SPARC"},
	record.IntName{I: uint64(CPUI860), S: "CPU_TYPE_I860"},
	record.IntName{I: uint64(CPUPpc), S: "CPU_TYPE_POWERPC"},
	record.IntName{I: uint64(CPUPpc64), S: "CPU_TYPE_POWERPC64"},
)

type CPUSubtype uint32

// X86 subtypes
const (
	CPUSubtypeX86All   CPUSubtype = 3
	CPUSubtypeX8664All CPUSubtype = 3
	CPUSubtypeX86Arch1 CPUSubtype = 4
	CPUSubtypeX86_64H  CPUSubtype = 8
)

// ARM subtypes
const (
	CPUSubtypeArmAll    CPUSubtype = 0
	CPUSubtypeArmV4T    CPUSubtype = 5
	CPUSubtypeArmV6     CPUSubtype = 6
	CPUSubtypeArmV5Tej  CPUSubtype = 7
	CPUSubtypeArmXscale CPUSubtype = 8
	CPUSubtypeArmV7     CPUSubtype = 9
	CPUSubtypeArmV7F    CPUSubtype = 10
	CPUSubtypeArmV7S    CPUSubtype = 11
	CPUSubtypeArmV7K    CPUSubtype = 12
	CPUSubtypeArmV8     CPUSubtype = 13
	CPUSubtypeArmV6M    CPUSubtype = 14
	CPUSubtypeArmV7M    CPUSubtype = 15
	CPUSubtypeArmV7Em   CPUSubtype = 16
	CPUSubtypeArmV8M    CPUSubtype = 17
)

// ARM64 subtypes
const (
	CPUSubtypeArm64All CPUSubtype = 0
	CPUSubtypeArm64V8  CPUSubtype = 1
	CPUSubtypeArm64E   CPUSubtype = 2
)

// Capability bits used in the definition of cpu_subtype.
const (
	CpuSubtypeFeatureMask      CPUSubtype = 0xff000000                         /* mask for feature flags */
	CpuSubtypeMask                        = CPUSubtype(^CpuSubtypeFeatureMask) /* mask for cpu subtype */
	CpuSubtypeLib64                       = 0x80000000                         /* 64 bit libraries */
	CpuSubtypePtrauthAbi                  = 0x80000000                         /* pointer authentication with versioned ABI */
	CpuSubtypePtrauthAbiUser              = 0x40000000                         /* pointer authentication with userspace versioned ABI */
	CpuSubtypeArm64PtrAuthMask            = 0x0f000000
)

var cpuSubtypeX86Strings = []record.IntName{
	{I: uint64(CPUSubtypeX86All), S: "x86"},
	{I: uint64(CPUSubtypeX86Arch1), S: "x86 Arch1"},
}
var cpuSubtypeX86_64Strings = []record.IntName{
	{I: uint64(CPUSubtypeX8664All), S: "x86_64"},
	{I: uint64(CPUSubtypeX86_64H), S: "x86_64 (Haswell)"},
}
var cpuSubtypeArmStrings = []record.IntName{
	{I: uint64(CPUSubtypeArmAll), S: "ArmAll"},
	{I: uint64(CPUSubtypeArmV4T), S: "ARMv4t"},
	{I: uint64(CPUSubtypeArmV6), S: "ARMv6"},
	{I: uint64(CPUSubtypeArmV5Tej), S: "ARMv5tej"},
	{I: uint64(CPUSubtypeArmXscale), S: "ARMXScale"},
	{I: uint64(CPUSubtypeArmV7), S: "ARMv7"},
	{I: uint64(CPUSubtypeArmV7F), S: "ARMv7f"},
	{I: uint64(CPUSubtypeArmV7S), S: "ARMv7s"},
	{I: uint64(CPUSubtypeArmV7K), S: "ARMv7k"},
	{I: uint64(CPUSubtypeArmV8), S: "ARMv8"},
	{I: uint64(CPUSubtypeArmV6M), S: "ARMv6m"},
	{I: uint64(CPUSubtypeArmV7M), S: "ARMv7m"},
	{I: uint64(CPUSubtypeArmV7Em), S: "ARMv7em"},
	{I: uint64(CPUSubtypeArmV8M), S: "ARMv8m"},
}
var cpuSubtypeArm64Strings = []record.IntName{
	{I: uint64(CPUSubtypeArm64All), S: "ARM64"},
	{I: uint64(CPUSubtypeArm64V8), S: "ARM64 (ARMv8)"},
	{I: uint64(CPUSubtypeArm64E), S: "ARM64e (ARMv8.3)"},
}

func (st CPUSubtype) String(cpu CPU) string {
	switch cpu {
	case CPU386:
		return stringName(uint64(st&CpuSubtypeMask), cpuSubtypeX86Strings, false)
	case CPUAmd64:
		return stringName(uint64(st&CpuSubtypeMask), cpuSubtypeX86_64Strings, false)
	case CPUArm:
		return stringName(uint64(st&CpuSubtypeMask), cpuSubtypeArmStrings, false)
	case CPUArm64, CPUArm6432:
		return stringName(uint64(st&CpuSubtypeMask), cpuSubtypeArm64Strings, false)
	}
	return "UNKNOWN"
}

// Caps describes the capability bits of an arm64e subtype.
func (st CPUSubtype) Caps(cpu CPU) string {
	if cpu != CPUArm64 || st&CpuSubtypeMask != CPUSubtypeArm64E {
		return ""
	}
	caps := st & CpuSubtypeFeatureMask
	if caps&CpuSubtypePtrauthAbiUser == 0 {
		return fmt.Sprintf("caps: PAC%02d", (caps&CpuSubtypeArm64PtrAuthMask)>>24)
	}
	return fmt.Sprintf("caps: PAK%02d", (caps&CpuSubtypeArm64PtrAuthMask)>>24)
}

// Subtype tables in <mach/machine.h> naming. Only the cpu types that still
// ship have one; a subtype of any other cpu fails validation.
var (
	x86Subtypes = record.MustMapping(
		record.IntName{I: uint64(CPUSubtypeX86All), S: "CPU_SUBTYPE_X86_ALL"},
		record.IntName{I: uint64(CPUSubtypeX86Arch1), S: "CPU_SUBTYPE_X86_ARCH1"},
	)
	x86_64Subtypes = record.MustMapping(
		record.IntName{I: uint64(CPUSubtypeX8664All), S: "CPU_SUBTYPE_X86_64_ALL"},
		record.IntName{I: uint64(CPUSubtypeX86_64H), S: "CPU_SUBTYPE_X86_64_H"},
	)
	armSubtypes = record.MustMapping(
		record.IntName{I: uint64(CPUSubtypeArmAll), S: "CPU_SUBTYPE_ARM_ALL"},
		record.IntName{I: uint64(CPUSubtypeArmV4T), S: "CPU_SUBTYPE_ARM_V4T"},
		record.IntName{I: uint64(CPUSubtypeArmV6), S: "CPU_SUBTYPE_ARM_V6"},
		record.IntName{I: uint64(CPUSubtypeArmV5Tej), S: "CPU_SUBTYPE_ARM_V5TEJ"},
		record.IntName{I: uint64(CPUSubtypeArmXscale), S: "CPU_SUBTYPE_ARM_XSCALE"},
		record.IntName{I: uint64(CPUSubtypeArmV7), S: "CPU_SUBTYPE_ARM_V7"},
		record.IntName{I: uint64(CPUSubtypeArmV7F), S: "CPU_SUBTYPE_ARM_V7F"},
		record.IntName{I: uint64(CPUSubtypeArmV7S), S: "CPU_SUBTYPE_ARM_V7S"},
		record.IntName{I: uint64(CPUSubtypeArmV7K), S: "CPU_SUBTYPE_ARM_V7K"},
		record.IntName{I: uint64(CPUSubtypeArmV8), S: "CPU_SUBTYPE_ARM_V8"},
		record.IntName{I: uint64(CPUSubtypeArmV6M), S: "CPU_SUBTYPE_ARM_V6M"},
		record.IntName{I: uint64(CPUSubtypeArmV7M), S: "CPU_SUBTYPE_ARM_V7M"},
		record.IntName{I: uint64(CPUSubtypeArmV7Em), S: "CPU_SUBTYPE_ARM_V7EM"},
		record.IntName{I: uint64(CPUSubtypeArmV8M), S: "CPU_SUBTYPE_ARM_V8M"},
	)
	arm64Subtypes = record.MustMapping(
		record.IntName{I: uint64(CPUSubtypeArm64All), S: "CPU_SUBTYPE_ARM64_ALL"},
		record.IntName{I: uint64(CPUSubtypeArm64V8), S: "CPU_SUBTYPE_ARM64_V8"},
		record.IntName{I: uint64(CPUSubtypeArm64E), S: "CPU_SUBTYPE_ARM64E"},
	)
)

// SubtypeTable returns the subtype names valid for cpu.
func SubtypeTable(cpu CPU) (*record.Mapping, bool) {
	switch cpu {
	case CPU386:
		return x86Subtypes, true
	case CPUAmd64:
		return x86_64Subtypes, true
	case CPUArm:
		return armSubtypes, true
	case CPUArm64, CPUArm6432:
		return arm64Subtypes, true
	}
	return nil, false
}

// CPUSubtypeKind validates a cpu subtype against the table for the cpu type
// stored in the cpuField of the same record. Capability bits are ignored.
// A cpu type without a table has no valid subtype.
func CPUSubtypeKind(cpuField string) record.Kind {
	return record.Func{
		ValidateFunc: func(r *record.Record, f string) bool {
			table, ok := SubtypeTable(CPU(r.Uint(cpuField)))
			return ok && table.HasValue(uint64(CPUSubtype(r.Uint(f)) & CpuSubtypeMask))
		},
		DisplayFunc: func(r *record.Record, f string) string {
			st := CPUSubtype(r.Uint(f)) & CpuSubtypeMask
			table, ok := SubtypeTable(CPU(r.Uint(cpuField)))
			if !ok {
				return fmt.Sprintf("%#x", uint32(st))
			}
			return table.StringName(uint64(st))
		},
	}
}
