package kernel

/*
Fixed-block memory partition, grounded on pretty_memory.c's
OS_MemoryPartitionCreate/OS_MemoryAllocateBlock/OS_MemoryDeallocateBlock.
The original threads its free list through the blocks' own storage,
writing a raw "next free block" pointer into the first machine word of
each free block. spec.md §9 calls that out as exactly the pattern this
port should not carry over verbatim: here the free list is a plain
index chain (freeNext[i] is the next free block index, or -1), so
Partition never takes the address of a byte inside its own buffer.
*/

// Block is a handle to one allocated block of a partition. The zero
// value is not a valid block.
type Block struct {
	part *Partition
	idx  int
	data []byte
}

// Data is the block's storage.
func (b Block) Data() []byte { return b.data }

// Partition is a fixed block-size memory pool.
type Partition struct {
	inUse      bool
	blockSize  int
	blockCount int
	buf        []byte
	freeNext   []int
	freeHead   int
	freeCount  int
}

// PartitionCreate reserves one of the kernel's configured partition
// slots, backed by a freshly allocated buffer of blockCount*blockSize
// bytes. blockSize must be at least 8 bytes, matching the original's
// "at least the size of a pointer" requirement even though this
// implementation no longer needs the space for an in-place link.
func (k *Kernel) PartitionCreate(blockCount, blockSize int) (*Partition, Code) {
	if !k.cfg.PartitionEnabled {
		return nil, CodeParam
	}
	if blockSize < 8 {
		return nil, CodeMemInvalidBlockSize
	}
	if blockCount <= 0 {
		return nil, CodeParam
	}

	var out *Partition
	var code Code
	k.critical(func() {
		for i := range k.partitions {
			if !k.partitions[i].inUse {
				p := &k.partitions[i]
				p.inUse = true
				p.blockSize = blockSize
				p.blockCount = blockCount
				p.buf = make([]byte, blockCount*blockSize)
				p.freeNext = make([]int, blockCount)
				for j := 0; j < blockCount-1; j++ {
					p.freeNext[j] = j + 1
				}
				p.freeNext[blockCount-1] = -1
				p.freeHead = 0
				p.freeCount = blockCount
				out = p
				return
			}
		}
		code = CodeMemFullPartition
	})
	return out, code
}

// PartitionAlloc removes one block from the partition's free list.
func (k *Kernel) PartitionAlloc(p *Partition) (Block, Code) {
	if p == nil || !p.inUse {
		return Block{}, CodeMemInvalidAddr
	}
	var blk Block
	var code Code
	k.critical(func() {
		if p.freeHead < 0 {
			code = CodeMemNoFreeBlocks
			return
		}
		idx := p.freeHead
		p.freeHead = p.freeNext[idx]
		p.freeCount--
		blk = Block{part: p, idx: idx, data: p.buf[idx*p.blockSize : (idx+1)*p.blockSize]}
	})
	return blk, code
}

// PartitionFree returns blk to its partition's free list. blk must have come
// from PartitionAlloc(p) on the same partition.
func (k *Kernel) PartitionFree(p *Partition, blk Block) Code {
	if p == nil || !p.inUse || blk.part != p {
		return CodeMemInvalidAddr
	}
	var code Code
	k.critical(func() {
		if p.freeCount >= p.blockCount {
			code = CodeMemFullPartition
			return
		}
		p.freeNext[blk.idx] = p.freeHead
		p.freeHead = blk.idx
		p.freeCount++
	})
	return code
}

// PartitionFreeBlocks reports how many blocks are currently unallocated.
func (k *Kernel) PartitionFreeBlocks(p *Partition) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return p.freeCount
}
