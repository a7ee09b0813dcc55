package index

type SpaceType string
type IndexType string

const (
	L2Space SpaceType = "l2"
)

const (
	IVFFLATIndex IndexType = "ivf_flat"
	FLATIndex    IndexType = "flat"
)

// IVF specific constants
const (
	DEFAULT_MAX_KMEANS_ITER = 40
	DEFAULT_NLIST           = 100
	DEFAULT_NPROBE          = 10
)
