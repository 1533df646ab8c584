// Package libraw 把 LibRaw 绑定为 engine 后端
//
// 需要 cgo、LibRaw 开发包（pkg-config: libraw）以及 -tags libraw 构建。
// 不带该标签构建时本包只提供 BackendName，引擎表中不会出现 libraw 后端。
//
// LibRaw 通过 BridgeDatastream（io.cpp）读取输入：
// 它的每个虚函数都转发到本包导出的 lod_* 回调，回调再经 bridge.Default() 找到句柄对应的流。
package libraw

// BackendName 注册到引擎表的名称
const BackendName = "libraw"
