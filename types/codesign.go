package types

import (
	"fmt"

	"github.com/appsworld/go-machview/pkg/record"
)

// CsMagic is the magic of a code signing blob. Code signatures are always
// big endian.
type CsMagic uint32

const (
	// Magic numbers used by Code Signing
	CSMAGIC_REQUIREMENT               CsMagic = 0xfade0c00 // single Requirement blob
	CSMAGIC_REQUIREMENTS              CsMagic = 0xfade0c01 // Requirements vector (internal requirements)
	CSMAGIC_CODEDIRECTORY             CsMagic = 0xfade0c02 // CodeDirectory blob
	CSMAGIC_EMBEDDED_SIGNATURE        CsMagic = 0xfade0cc0 // embedded form of signature data
	CSMAGIC_EMBEDDED_SIGNATURE_OLD    CsMagic = 0xfade0b02 /* XXX */
	CSMAGIC_LIBRARY_DEPENDENCY_BLOB   CsMagic = 0xfade0c05
	CSMAGIC_EMBEDDED_ENTITLEMENTS     CsMagic = 0xfade7171 /* embedded entitlements */
	CSMAGIC_EMBEDDED_ENTITLEMENTS_DER CsMagic = 0xfade7172 /* embedded entitlements */
	CSMAGIC_DETACHED_SIGNATURE        CsMagic = 0xfade0cc1 // multi-arch collection of embedded signatures
	CSMAGIC_BLOBWRAPPER               CsMagic = 0xfade0b01 // used for the cms blob
)

var CsMagics = record.MustMapping(
	record.IntName{I: uint64(CSMAGIC_REQUIREMENT), S: "CSMAGIC_REQUIREMENT"},
	record.IntName{I: uint64(CSMAGIC_REQUIREMENTS), S: "CSMAGIC_REQUIREMENTS"},
	record.IntName{I: uint64(CSMAGIC_CODEDIRECTORY), S: "CSMAGIC_CODEDIRECTORY"},
	record.IntName{I: uint64(CSMAGIC_EMBEDDED_SIGNATURE), S: "CSMAGIC_EMBEDDED_SIGNATURE"},
	record.IntName{I: uint64(CSMAGIC_EMBEDDED_SIGNATURE_OLD), S: "CSMAGIC_EMBEDDED_SIGNATURE_OLD"},
	record.IntName{I: uint64(CSMAGIC_LIBRARY_DEPENDENCY_BLOB), S: "CSMAGIC_LIBRARY_DEPENDENCY_BLOB"},
	record.IntName{I: uint64(CSMAGIC_EMBEDDED_ENTITLEMENTS), S: "CSMAGIC_EMBEDDED_ENTITLEMENTS"},
	record.IntName{I: uint64(CSMAGIC_EMBEDDED_ENTITLEMENTS_DER), S: "CSMAGIC_EMBEDDED_ENTITLEMENTS_DER"},
	record.IntName{I: uint64(CSMAGIC_DETACHED_SIGNATURE), S: "CSMAGIC_DETACHED_SIGNATURE"},
	record.IntName{I: uint64(CSMAGIC_BLOBWRAPPER), S: "CSMAGIC_BLOBWRAPPER"},
)

func (cm CsMagic) String() string { return CsMagics.StringName(uint64(cm)) }

type CsSlotType uint32

const (
	CSSLOT_CODEDIRECTORY             CsSlotType = 0
	CSSLOT_INFOSLOT                  CsSlotType = 1
	CSSLOT_REQUIREMENTS              CsSlotType = 2
	CSSLOT_RESOURCEDIR               CsSlotType = 3
	CSSLOT_APPLICATION               CsSlotType = 4
	CSSLOT_ENTITLEMENTS              CsSlotType = 5
	CSSLOT_DER_ENTITLEMENTS          CsSlotType = 7
	CSSLOT_ALTERNATE_CODEDIRECTORIES CsSlotType = 0x1000
	CSSLOT_CMS_SIGNATURE             CsSlotType = 0x10000
	CSSLOT_IDENTIFICATIONSLOT        CsSlotType = 0x10001
	CSSLOT_TICKETSLOT                CsSlotType = 0x10002
)

var CsSlotTypes = record.MustMapping(
	record.IntName{I: uint64(CSSLOT_CODEDIRECTORY), S: "CodeDirectory"},
	record.IntName{I: uint64(CSSLOT_INFOSLOT), S: "InfoSlot"},
	record.IntName{I: uint64(CSSLOT_REQUIREMENTS), S: "Requirements"},
	record.IntName{I: uint64(CSSLOT_RESOURCEDIR), S: "ResourceDir"},
	record.IntName{I: uint64(CSSLOT_APPLICATION), S: "Application"},
	record.IntName{I: uint64(CSSLOT_ENTITLEMENTS), S: "Entitlements"},
	record.IntName{I: uint64(CSSLOT_DER_ENTITLEMENTS), S: "DER Entitlements"},
	record.IntName{I: uint64(CSSLOT_ALTERNATE_CODEDIRECTORIES), S: "AlternateCodeDirectories"},
	record.IntName{I: uint64(CSSLOT_CMS_SIGNATURE), S: "CMS (RFC3852) signature"},
	record.IntName{I: uint64(CSSLOT_IDENTIFICATIONSLOT), S: "IdentificationSlot"},
	record.IntName{I: uint64(CSSLOT_TICKETSLOT), S: "TicketSlot"},
)

func (c CsSlotType) String() string { return CsSlotTypes.StringName(uint64(c)) }

type CsHashType uint8

const (
	CS_HASHTYPE_NOHASH           CsHashType = 0
	CS_HASHTYPE_SHA1             CsHashType = 1
	CS_HASHTYPE_SHA256           CsHashType = 2
	CS_HASHTYPE_SHA256_TRUNCATED CsHashType = 3
	CS_HASHTYPE_SHA384           CsHashType = 4
	CS_HASHTYPE_SHA512           CsHashType = 5
)

var CsHashTypes = record.MustMapping(
	record.IntName{I: uint64(CS_HASHTYPE_NOHASH), S: "No Hash"},
	record.IntName{I: uint64(CS_HASHTYPE_SHA1), S: "Sha1"},
	record.IntName{I: uint64(CS_HASHTYPE_SHA256), S: "Sha256"},
	record.IntName{I: uint64(CS_HASHTYPE_SHA256_TRUNCATED), S: "Sha256 (Truncated)"},
	record.IntName{I: uint64(CS_HASHTYPE_SHA384), S: "Sha384"},
	record.IntName{I: uint64(CS_HASHTYPE_SHA512), S: "Sha512"},
)

func (c CsHashType) String() string { return CsHashTypes.StringName(uint64(c)) }

var (
	// SuperBlob is the header of an embedded signature.
	SuperBlob = record.NewLayout("CS_SuperBlob", record.Big,
		record.Field{Name: "magic", Format: record.U32, Kind: record.Magic(map[uint64]string{
			uint64(CSMAGIC_EMBEDDED_SIGNATURE):     "CSMAGIC_EMBEDDED_SIGNATURE",
			uint64(CSMAGIC_EMBEDDED_SIGNATURE_OLD): "CSMAGIC_EMBEDDED_SIGNATURE_OLD",
			uint64(CSMAGIC_DETACHED_SIGNATURE):     "CSMAGIC_DETACHED_SIGNATURE",
		})},
		u32("length"),
		u32("count"),
	)
	// BlobIndex follows the superblob, one per blob.
	BlobIndex = record.NewLayout("CS_BlobIndex", record.Big,
		record.Field{Name: "type", Format: record.U32, Kind: record.Names(CsSlotTypes)},
		hex32("offset"),
	).Indexed()
	// GenericBlob is the header every blob starts with.
	GenericBlob = record.NewLayout("CS_GenericBlob", record.Big,
		record.Field{Name: "magic", Format: record.U32, Kind: record.Names(CsMagics)},
		u32("length"),
	)
	// CodeDirectory is the fixed part of CS_CodeDirectory every version has.
	CodeDirectory = record.NewLayout("CS_CodeDirectory", record.Big,
		record.Field{Name: "magic", Format: record.U32, Kind: record.Magic(map[uint64]string{
			uint64(CSMAGIC_CODEDIRECTORY): "CSMAGIC_CODEDIRECTORY",
		})},
		u32("length"),
		hex32("version"),
		hex32("flags"),
		hex32("hashOffset"),
		hex32("identOffset"),
		u32("nSpecialSlots"),
		u32("nCodeSlots"),
		hex32("codeLimit"),
		record.Field{Name: "hashSize", Format: record.U8},
		record.Field{Name: "hashType", Format: record.U8, Kind: record.Names(CsHashTypes)},
		record.Field{Name: "platform", Format: record.U8},
		record.Field{Name: "pageSize", Format: record.U8, Kind: record.Func{
			DisplayFunc: func(r *record.Record, f string) string { return fmt.Sprintf("2^%d", r.Uint(f)) },
		}},
		u32("spare2"),
	)
)
