package store

// FileTransfer is transient metadata for an in-flight or completed attachment
// transfer. TID is assigned by the transfer layer.
type FileTransfer struct {
	Id         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	TID        []byte `gorm:"column:tid;not null;index:idx_file_transfers_tid"`
	Contact    []byte `gorm:"column:contact;not null"`
	FileName   string `gorm:"column:file_name;not null"`
	FileType   string `gorm:"column:file_type;not null"`
	IsIncoming bool   `gorm:"column:is_incoming;not null"`
}

// TableName provides the explicit table binding for GORM.
func (FileTransfer) TableName() string {
	return "file_transfers"
}

func (t FileTransfer) primaryKey() int64 {
	return t.Id
}

type fileTransferRequestKind int

const (
	fileTransferRequestAll fileTransferRequestKind = iota + 1
	fileTransferRequestIncoming
	fileTransferRequestOutgoing
	fileTransferRequestWithTID
	fileTransferRequestWithContact
)

// FileTransferRequest is the closed vocabulary of transfer queries.
type FileTransferRequest struct {
	kind    fileTransferRequestKind
	tid     []byte
	contact []byte
}

// FileTransfersAll matches every transfer.
func FileTransfersAll() FileTransferRequest {
	return FileTransferRequest{kind: fileTransferRequestAll}
}

// FileTransfersIncoming matches inbound transfers.
func FileTransfersIncoming() FileTransferRequest {
	return FileTransferRequest{kind: fileTransferRequestIncoming}
}

// FileTransfersOutgoing matches outbound transfers.
func FileTransfersOutgoing() FileTransferRequest {
	return FileTransferRequest{kind: fileTransferRequestOutgoing}
}

// FileTransfersWithTID matches the transfer with the given identifier.
func FileTransfersWithTID(tid []byte) FileTransferRequest {
	return FileTransferRequest{kind: fileTransferRequestWithTID, tid: tid}
}

// FileTransfersWithContact matches every transfer with one peer.
func FileTransfersWithContact(contact []byte) FileTransferRequest {
	return FileTransferRequest{kind: fileTransferRequestWithContact, contact: contact}
}

func (FileTransfer) compileRequest(r FileTransferRequest) query {
	switch r.kind {
	case fileTransferRequestAll:
		return query{}
	case fileTransferRequestIncoming:
		return query{where: "is_incoming = ?", args: []any{true}}
	case fileTransferRequestOutgoing:
		return query{where: "is_incoming = ?", args: []any{false}}
	case fileTransferRequestWithTID:
		return query{where: "tid = ?", args: []any{r.tid}}
	case fileTransferRequestWithContact:
		return query{where: "contact = ?", args: []any{r.contact}}
	}
	panic("store: zero FileTransferRequest, use a FileTransfers* constructor")
}
