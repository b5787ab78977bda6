package device_test

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ezrec/ubit/buffer"
	"github.com/ezrec/ubit/command"
	"github.com/ezrec/ubit/device"
	"github.com/ezrec/ubit/display"
	"github.com/ezrec/ubit/engine"
	"github.com/ezrec/ubit/wire"
)

// frames records every frame shown.
type frames struct {
	mutex sync.Mutex
	list  []display.Frame
}

func (fs *frames) Show(fr display.Frame) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.list = append(fs.list, fr)
}

func (fs *frames) All() []display.Frame {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	return append([]display.Frame(nil), fs.list...)
}

func (fs *frames) Last() (fr display.Frame) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if len(fs.list) > 0 {
		fr = fs.list[len(fs.list)-1]
	}
	return
}

// resets counts simulated restarts.
type resets struct {
	count atomic.Int32
}

func (r *resets) Reset() {
	r.count.Add(1)
}

var _ = Describe("Device", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		disp    *frames
		restart *resets
		dev     *device.Device
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		disp = &frames{}
		restart = &resets{}

		// r0 counts executions, r1 echoes the first instruction byte.
		eng := engine.Func(func(regs *buffer.Registers, ins *buffer.Instructions) {
			regs[0]++
			regs[1] = int32(ins[0])
		})

		dev = device.NewDevice(eng, disp, restart)
	})

	AfterEach(func() {
		cancel()
	})

	It("should start with the stack pointer at the top of the stack", func() {
		dev.Reset()

		Expect(dev.State.Registers.Sp()).To(Equal(int32(buffer.STACK_TOP)))
		Expect(disp.Last()).To(Equal(display.Text(device.READY_INDICATOR)))
		Expect(dev.Connected()).To(BeFalse())
	})

	Context("buttons", func() {
		It("should load the default program on A", func() {
			dev.Press(device.BUTTON_A)

			done, err := dev.Tick(ctx)
			Expect(done).To(BeFalse())
			Expect(err).NotTo(HaveOccurred())
			Expect(dev.State.Instructions[:18]).To(Equal(buffer.DefaultProgram[:]))
			Expect(dev.State.Instructions[18]).To(BeZero())
		})

		It("should show the marker on B", func() {
			dev.Press(device.BUTTON_B)

			_, err := dev.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(disp.All()).To(Equal([]display.Frame{display.Marker()}))
		})

		It("should handle buttons before a pending connect", func() {
			host, link := net.Pipe()
			defer host.Close()
			defer link.Close()

			dev.Connect(link)
			dev.Press(device.BUTTON_B)

			_, err := dev.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(disp.Last()).To(Equal(display.Marker()))
			Expect(dev.Connected()).To(BeFalse())

			_, err = dev.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(dev.Connected()).To(BeTrue())
		})

		It("should stop when the context is done", func() {
			cancel()

			done, err := dev.Tick(ctx)
			Expect(done).To(BeTrue())
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	It("should ignore a disconnect queued before a connect", func() {
		host, link := net.Pipe()
		defer host.Close()
		defer link.Close()

		dev.Disconnect()
		closed := dev.Connect(link)

		result := make(chan error, 1)
		go func() {
			result <- dev.Run(ctx)
		}()

		Eventually(dev.Connected).Should(BeTrue())
		Consistently(closed).ShouldNot(BeClosed())

		p, err := wire.NewPacket(command.CODE_SYNC, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = host.Write(p[:])
		Expect(err).NotTo(HaveOccurred())

		data := make([]byte, wire.REPLY_SIZE)
		for range 4 {
			_, err = io.ReadFull(host, data)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(data[0]).To(Equal(byte(wire.MEMORY_TAG)))

		cancel()
		Eventually(result).Should(Receive(MatchError(context.Canceled)))
	})

	Context("session", func() {
		var (
			host   net.Conn
			link   net.Conn
			closed <-chan struct{}
			result chan error
		)

		send := func(code byte, payload ...byte) {
			p, err := wire.NewPacket(code, payload)
			Expect(err).NotTo(HaveOccurred())
			_, err = host.Write(p[:])
			Expect(err).NotTo(HaveOccurred())
		}

		recv := func(count int) (replies []wire.Reply) {
			for range count {
				data := make([]byte, wire.REPLY_SIZE)
				_, err := io.ReadFull(host, data)
				Expect(err).NotTo(HaveOccurred())
				reply, err := wire.Decode(data)
				Expect(err).NotTo(HaveOccurred())
				replies = append(replies, reply)
			}
			return
		}

		tags := func(replies []wire.Reply) (list []byte) {
			for _, reply := range replies {
				list = append(list, reply.Tag)
			}
			return
		}

		BeforeEach(func() {
			host, link = net.Pipe()
			result = make(chan error, 1)

			go func() {
				result <- dev.Run(ctx)
			}()

			closed = dev.Connect(link)
		})

		AfterEach(func() {
			cancel()
			Eventually(result).Should(Receive(MatchError(context.Canceled)))
			host.Close()
			link.Close()
		})

		It("should clear, store and sync", func() {
			send(command.CODE_CLEAR)
			replies := recv(4)
			Expect(tags(replies)).To(Equal([]byte{1, 2, 3, 4}))
			Expect(replies[0].Words).To(Equal([4]int32{0, 0, 0, 0}))
			Expect(replies[2].Words[1]).To(Equal(int32(buffer.STACK_TOP)))

			send(command.CODE_STORE, 0x01, 0x02, 0x03, 0x04)
			Expect(tags(recv(3))).To(Equal([]byte{1, 2, 3}))
			Expect(dev.State.Instructions[20:24]).To(Equal([]byte{0x01, 0x02, 0x03, 0x04}))

			send(command.CODE_SYNC)
			replies = recv(4)
			Expect(replies[3].Tag).To(Equal(byte(wire.MEMORY_TAG)))
			Expect(replies[3].Words[0]).To(Equal(int32(0x04030201)))

			Expect(dev.Connected()).To(BeTrue())
		})

		It("should run the engine and show the registers", func() {
			send(command.CODE_RUN, 0x11)
			replies := recv(4)
			Expect(replies[0].Words[0]).To(Equal(int32(1)))
			Expect(replies[0].Words[1]).To(Equal(int32(0x11)))

			Eventually(disp.Last).Should(Equal(display.Registers(&buffer.Registers{1, 0x11})))
		})

		It("should ignore invalid commands", func() {
			send(9, 0xff, 0xff, 0xff, 0xff)
			send(command.CODE_SYNC)

			replies := recv(4)
			Expect(tags(replies)).To(Equal([]byte{1, 2, 3, 4}))
			Expect(replies[3].Words[0]).To(BeZero())
			Expect(disp.All()).To(ContainElement(display.Text(command.INVALID_INDICATOR)))
		})

		It("should end the session on quit", func() {
			send(command.CODE_QUIT)

			Eventually(closed).Should(BeClosed())
			Expect(dev.Connected()).To(BeFalse())
			Expect(disp.All()).NotTo(ContainElement(display.Text(device.DISCONNECT_INDICATOR)))
		})

		It("should end the session on disconnect", func() {
			send(command.CODE_SYNC)
			recv(4)

			dev.Disconnect()

			Eventually(closed).Should(BeClosed())
			Expect(dev.Connected()).To(BeFalse())
			Eventually(disp.Last).Should(Equal(display.Text(device.DISCONNECT_INDICATOR)))
		})

		It("should end the session when the transport closes", func() {
			host.Close()

			Eventually(closed).Should(BeClosed())
			Eventually(disp.Last).Should(Equal(display.Text(device.DISCONNECT_INDICATOR)))
		})

		It("should reinitialise after a reset", func() {
			send(command.CODE_STORE, 0xde, 0xad, 0xbe, 0xef)
			recv(3)

			send(command.CODE_RESET)

			Eventually(closed).Should(BeClosed())
			Eventually(disp.Last).Should(Equal(display.Text(device.READY_INDICATOR)))
			Expect(restart.count.Load()).To(Equal(int32(1)))
			Expect(dev.State.Instructions).To(Equal(buffer.Instructions{}))
		})

		It("should refuse a second connection", func() {
			other, otherLink := net.Pipe()
			defer other.Close()
			defer otherLink.Close()

			send(command.CODE_SYNC)
			recv(4)

			Eventually(dev.Connect(otherLink)).Should(BeClosed())
			Consistently(closed).ShouldNot(BeClosed())

			send(command.CODE_SYNC)
			Expect(tags(recv(4))).To(Equal([]byte{1, 2, 3, 4}))
		})

		It("should keep state across connections", func() {
			send(command.CODE_STORE+2, 0xca, 0xfe, 0xf0, 0x0d)
			recv(3)
			send(command.CODE_QUIT)
			Eventually(closed).Should(BeClosed())

			again, againLink := net.Pipe()
			defer again.Close()
			defer againLink.Close()
			dev.Connect(againLink)

			p, err := wire.NewPacket(command.CODE_SYNC, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = again.Write(p[:])
			Expect(err).NotTo(HaveOccurred())

			var memory wire.Reply
			for range 4 {
				data := make([]byte, wire.REPLY_SIZE)
				_, err = io.ReadFull(again, data)
				Expect(err).NotTo(HaveOccurred())
				memory, err = wire.Decode(data)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(memory.Tag).To(Equal(byte(wire.MEMORY_TAG)))
			Expect(memory.Words[2]).To(Equal(int32(0x0df0feca)))
		})
	})
})
