package types

import "github.com/appsworld/go-machview/pkg/record"

// FatHeader is struct fat_header. Fat headers are always big endian.
var FatHeader = record.NewLayout("fat_header", record.Big,
	record.Field{Name: "magic", Format: record.U32, Kind: record.Magic(map[uint64]string{
		uint64(MagicFat): "MAGIC",
		uint64(CigamFat): "CIGAM",
	})},
	record.Field{Name: "nfat_arch", Format: record.U32},
)

// FatArch is struct fat_arch.
var FatArch = record.NewLayout("fat_arch", record.Big,
	record.Field{Name: "cputype", Format: record.U32, Kind: record.Enum(CPUTypes)},
	record.Field{Name: "cpusubtype", Format: record.U32, Kind: CPUSubtypeKind("cputype")},
	record.Field{Name: "offset", Format: record.U32},
	record.Field{Name: "size", Format: record.U32},
	record.Field{Name: "align", Format: record.U32},
)

// A FatArchHeader is a decoded fat_arch entry.
type FatArchHeader struct {
	CPU    CPU
	SubCPU CPUSubtype
	Offset uint32
	Size   uint32
	Align  uint32
}

func FatArchFromRecord(r *record.Record) FatArchHeader {
	return FatArchHeader{
		CPU:    CPU(r.Uint32("cputype")),
		SubCPU: CPUSubtype(r.Uint32("cpusubtype")),
		Offset: r.Uint32("offset"),
		Size:   r.Uint32("size"),
		Align:  r.Uint32("align"),
	}
}
