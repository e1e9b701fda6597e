// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for every record persisted in storage. Timestamps are
// encoded as Unix microseconds. Field order is part of the storage format
// and must not change between releases.
var (
	IDMUS              = idMUS{}
	VectorMUS          = ord.NewSliceSer[float32](raw.Float32)
	SnippetMUS         = snippetMUS{}
	SnippetProgressMUS = snippetProgressMUS{}
	InstanceMUS        = instanceMUS{}
	DocumentMUS        = documentMUS{}
	HistoryEventMUS    = historyEventMUS{}

	snippetSliceMUS  = ord.NewSliceSer[Snippet](SnippetMUS)
	progressSliceMUS = ord.NewSliceSer[SnippetProgress](SnippetProgressMUS)
)

type idMUS struct{}

func (s idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (s idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (s idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (s idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type snippetMUS struct{}

func (s snippetMUS) Marshal(sn Snippet, bs []byte) (n int) {
	n = ord.String.Marshal(sn.Name, bs)
	n += ord.String.Marshal(sn.Code, bs[n:])
	n += ord.String.Marshal(sn.Language, bs[n:])
	return
}

func (s snippetMUS) Unmarshal(bs []byte) (sn Snippet, n int, err error) {
	var n1 int
	sn.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	sn.Code, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	sn.Language, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s snippetMUS) Size(sn Snippet) (size int) {
	size = ord.String.Size(sn.Name)
	size += ord.String.Size(sn.Code)
	size += ord.String.Size(sn.Language)
	return
}

func (s snippetMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for i := 0; i < 3; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

type snippetProgressMUS struct{}

func (s snippetProgressMUS) Marshal(p SnippetProgress, bs []byte) (n int) {
	n = ord.String.Marshal(p.Name, bs)
	n += varint.Int.Marshal(int(p.State), bs[n:])
	n += varint.Int.Marshal(p.Chunks, bs[n:])
	n += ord.String.Marshal(p.Error, bs[n:])
	return
}

func (s snippetProgressMUS) Unmarshal(bs []byte) (p SnippetProgress, n int, err error) {
	var n1 int
	p.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var state int
	state, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	p.State = SnippetState(state)
	p.Chunks, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	p.Error, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s snippetProgressMUS) Size(p SnippetProgress) (size int) {
	size = ord.String.Size(p.Name)
	size += varint.Int.Size(int(p.State))
	size += varint.Int.Size(p.Chunks)
	size += ord.String.Size(p.Error)
	return
}

func (s snippetProgressMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	if n, err = ord.String.Skip(bs); err != nil {
		return
	}
	if n1, err = varint.Int.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	if n1, err = varint.Int.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

type instanceMUS struct{}

func (s instanceMUS) Marshal(in Instance, bs []byte) (n int) {
	n = ord.String.Marshal(in.ID, bs)
	n += ord.String.Marshal(in.ProjectID, bs[n:])
	n += snippetSliceMUS.Marshal(in.Snippets, bs[n:])
	n += varint.Int.Marshal(in.ChunkSize, bs[n:])
	n += varint.Int.Marshal(int(in.Status), bs[n:])
	n += progressSliceMUS.Marshal(in.Progress, bs[n:])
	n += varint.Int64.Marshal(in.CreatedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(in.UpdatedAt.UnixMicro(), bs[n:])
	return
}

func (s instanceMUS) Unmarshal(bs []byte) (in Instance, n int, err error) {
	var n1 int
	in.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	in.ProjectID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	in.Snippets, n1, err = snippetSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	in.ChunkSize, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var status int
	status, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	in.Status = InstanceStatus(status)
	in.Progress, n1, err = progressSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	in.CreatedAt = time.UnixMicro(micros).UTC()
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	in.UpdatedAt = time.UnixMicro(micros).UTC()
	return
}

func (s instanceMUS) Size(in Instance) (size int) {
	size = ord.String.Size(in.ID)
	size += ord.String.Size(in.ProjectID)
	size += snippetSliceMUS.Size(in.Snippets)
	size += varint.Int.Size(in.ChunkSize)
	size += varint.Int.Size(int(in.Status))
	size += progressSliceMUS.Size(in.Progress)
	size += varint.Int64.Size(in.CreatedAt.UnixMicro())
	size += varint.Int64.Size(in.UpdatedAt.UnixMicro())
	return
}

func (s instanceMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type documentMUS struct{}

func (s documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = ord.String.Marshal(d.Name, bs)
	n += ord.String.Marshal(d.ProjectID, bs[n:])
	n += ord.String.Marshal(d.Code, bs[n:])
	n += ord.String.Marshal(d.Language, bs[n:])
	n += VectorMUS.Marshal(d.Vector, bs[n:])
	n += varint.Int64.Marshal(d.InsertedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(d.UpdatedAt.UnixMicro(), bs[n:])
	return
}

func (s documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var n1 int
	d.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	d.ProjectID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Code, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Language, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Vector, n1, err = VectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.InsertedAt = time.UnixMicro(micros).UTC()
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.UpdatedAt = time.UnixMicro(micros).UTC()
	return
}

func (s documentMUS) Size(d Document) (size int) {
	size = ord.String.Size(d.Name)
	size += ord.String.Size(d.ProjectID)
	size += ord.String.Size(d.Code)
	size += ord.String.Size(d.Language)
	size += VectorMUS.Size(d.Vector)
	size += varint.Int64.Size(d.InsertedAt.UnixMicro())
	size += varint.Int64.Size(d.UpdatedAt.UnixMicro())
	return
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type historyEventMUS struct{}

func (s historyEventMUS) Marshal(ev HistoryEvent, bs []byte) (n int) {
	n = ord.String.Marshal(ev.InstanceID, bs)
	n += ord.String.Marshal(ev.SnippetName, bs[n:])
	n += varint.Int.Marshal(int(ev.Kind), bs[n:])
	n += varint.Int.Marshal(ev.Ordinal, bs[n:])
	n += IDMUS.Marshal(ev.InputsHash, bs[n:])
	n += VectorMUS.Marshal(ev.Vector, bs[n:])
	n += varint.Int.Marshal(ev.ChunkCount, bs[n:])
	n += ord.Bool.Marshal(ev.Failed, bs[n:])
	n += ord.String.Marshal(ev.Error, bs[n:])
	n += varint.Int64.Marshal(ev.RecordedAt.UnixMicro(), bs[n:])
	return
}

func (s historyEventMUS) Unmarshal(bs []byte) (ev HistoryEvent, n int, err error) {
	var n1 int
	ev.InstanceID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	ev.SnippetName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var kind int
	kind, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	ev.Kind = StepKind(kind)
	ev.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	ev.InputsHash, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	ev.Vector, n1, err = VectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	ev.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	ev.Failed, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	ev.Error, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	ev.RecordedAt = time.UnixMicro(micros).UTC()
	return
}

func (s historyEventMUS) Size(ev HistoryEvent) (size int) {
	size = ord.String.Size(ev.InstanceID)
	size += ord.String.Size(ev.SnippetName)
	size += varint.Int.Size(int(ev.Kind))
	size += varint.Int.Size(ev.Ordinal)
	size += IDMUS.Size(ev.InputsHash)
	size += VectorMUS.Size(ev.Vector)
	size += varint.Int.Size(ev.ChunkCount)
	size += ord.Bool.Size(ev.Failed)
	size += ord.String.Size(ev.Error)
	size += varint.Int64.Size(ev.RecordedAt.UnixMicro())
	return
}

func (s historyEventMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
